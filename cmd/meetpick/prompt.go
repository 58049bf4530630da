package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const passwordEnv = "MEETPICK_PASSWORD"

var errNeedConfirm = errors.New("확인이 필요합니다. --yes 를 붙여 다시 실행해주세요.")

// stdinTerminal reports whether stdin is an interactive terminal.
func stdinTerminal(e *env) (int, bool) {
	f, ok := e.stdin.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// password resolves a password from the flag, then MEETPICK_PASSWORD, then
// a hidden prompt.
func password(e *env, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(passwordEnv); v != "" {
		return v, nil
	}
	fd, ok := stdinTerminal(e)
	if !ok {
		return "", fmt.Errorf("비밀번호를 입력해주세요 (--password 또는 %s)", passwordEnv)
	}
	fmt.Fprint(e.stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(e.stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readLine prompts for a visible value when value is empty.
func readLine(e *env, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if _, ok := stdinTerminal(e); !ok {
		return "", errors.New(strings.TrimSuffix(prompt, ": ") + " 값이 필요합니다.")
	}
	fmt.Fprint(e.stderr, prompt)
	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks before destructive commands. yes short-circuits; without a
// terminal the command is refused.
func confirm(e *env, yes bool, question string) error {
	if yes {
		return nil
	}
	if _, ok := stdinTerminal(e); !ok {
		return errNeedConfirm
	}
	fmt.Fprintf(e.stderr, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(e.stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	default:
		return errors.New("취소되었습니다.")
	}
}
