package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"meetpick/internal/config"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies writes the session cookies for the backend origin to path.
// The jar only exposes name/value pairs, which is all a client needs to
// replay them.
func (c *Client) SaveCookies(path string) error {
	cookies := c.jar.Cookies(c.base)
	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(path, data)
}

// LoadCookies restores cookies written by SaveCookies. A missing file is
// not an error.
func (c *Client) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.jar.SetCookies(c.base, cookies)
	return nil
}

// ClearCookies expires every cookie held for the backend and removes path.
func (c *Client) ClearCookies(path string) error {
	cookies := c.jar.Cookies(c.base)
	expired := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		expired = append(expired, &http.Cookie{Name: ck.Name, Value: "", Path: "/", MaxAge: -1})
	}
	c.jar.SetCookies(c.base, expired)

	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// HasCookies reports whether any cookie is held for the backend.
func (c *Client) HasCookies() bool {
	return len(c.jar.Cookies(c.base)) > 0
}
