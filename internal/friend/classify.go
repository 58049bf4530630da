package friend

import "meetpick/internal/model"

// Requests is the friend list partitioned by status and direction. Every
// relationship row lands in exactly one bucket.
type Requests struct {
	Received  []model.Friend
	Sent      []model.Friend
	Accepted  []model.Friend
	Rejected  []model.Friend
	Cancelled []model.Friend
}

type Stats struct {
	TotalFriends    int
	PendingReceived int
	PendingSent     int
	TotalPending    int
	Rejected        int
	Cancelled       int
}

// Classify partitions friends. The sender flag only discriminates within
// PENDING; rows with a status outside the known four are skipped, which the
// API client's response validation already rules out.
func Classify(friends []model.Friend) Requests {
	var r Requests
	for _, f := range friends {
		switch f.Status {
		case model.FriendPending:
			if f.IsSender {
				r.Sent = append(r.Sent, f)
			} else {
				r.Received = append(r.Received, f)
			}
		case model.FriendAccepted:
			r.Accepted = append(r.Accepted, f)
		case model.FriendRejected:
			r.Rejected = append(r.Rejected, f)
		case model.FriendCancel:
			r.Cancelled = append(r.Cancelled, f)
		}
	}
	return r
}

func StatsOf(r Requests) Stats {
	return Stats{
		TotalFriends:    len(r.Accepted),
		PendingReceived: len(r.Received),
		PendingSent:     len(r.Sent),
		TotalPending:    len(r.Received) + len(r.Sent),
		Rejected:        len(r.Rejected),
		Cancelled:       len(r.Cancelled),
	}
}

// Len is the number of rows across all buckets.
func (r Requests) Len() int {
	return len(r.Received) + len(r.Sent) + len(r.Accepted) + len(r.Rejected) + len(r.Cancelled)
}
