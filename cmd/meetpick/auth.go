package main

import (
	"context"
	"errors"
	"fmt"

	"meetpick/internal/api"
	"meetpick/internal/session"
)

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login", e)
	username := fs.String("username", "", "Account username")
	pw := fs.String("password", "", "Password (or set "+passwordEnv+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	name, err := readLine(e, *username, "아이디: ")
	if err != nil {
		return err
	}
	secret, err := password(e, *pw, "비밀번호: ")
	if err != nil {
		return err
	}

	s := e.app.Session
	if !s.Login(ctx, name, secret) {
		return storeError(s.Error())
	}
	u := s.User()
	fmt.Fprintf(e.stdout, "%s(%s)님으로 로그인되었습니다.\n", u.Nickname, u.Username)
	return nil
}

func runLogout(ctx context.Context, e *env, _ []string) error {
	e.app.Session.Logout(ctx)
	fmt.Fprintln(e.stdout, "로그아웃되었습니다.")
	return nil
}

func runWhoami(ctx context.Context, e *env, _ []string) error {
	s := e.app.Session
	switch s.Bootstrap(ctx) {
	case session.StateAuthenticated:
		u := s.User()
		fmt.Fprintf(e.stdout, "%s (%s) id=%d", u.Nickname, u.Username, u.ID)
		if u.Location != "" {
			fmt.Fprintf(e.stdout, " 지역=%s", u.Location)
		}
		fmt.Fprintln(e.stdout)
		return nil
	default:
		if msg := s.Error(); msg != "" {
			return errors.New(msg)
		}
		return errors.New("로그인되어 있지 않습니다.")
	}
}

func runSignup(ctx context.Context, e *env, args []string) error {
	fs := newFlags("signup", e)
	username := fs.String("username", "", "Username, 4-20 letters, digits or _")
	nickname := fs.String("nickname", "", "Nickname, 2-10 characters")
	location := fs.String("location", "", "Optional location")
	pw := fs.String("password", "", "Password (or set "+passwordEnv+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret, err := password(e, *pw, "비밀번호: ")
	if err != nil {
		return err
	}
	req := api.SignupRequest{Username: *username, Password: secret, Nickname: *nickname, Location: *location}

	s := e.app.Session
	if !s.Signup(ctx, req) {
		return storeError(s.Error())
	}
	fmt.Fprintln(e.stdout, "회원가입이 완료되었습니다.")
	return nil
}

func runCheckUsername(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: meetpick check-username NAME")
	}
	s := e.app.Session
	available := s.CheckUsername(ctx, args[0])
	if msg := s.Error(); msg != "" {
		return errors.New(msg)
	}
	if available {
		fmt.Fprintln(e.stdout, "사용 가능한 아이디입니다.")
		return nil
	}
	fmt.Fprintln(e.stdout, "이미 사용 중인 아이디입니다.")
	return nil
}
