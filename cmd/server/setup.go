package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Alwanly/service-fleet-monitor/internal/auth"
	"github.com/Alwanly/service-fleet-monitor/internal/models"
	authentication "github.com/Alwanly/service-fleet-monitor/pkg/auth"
)

// setAdmin reads a password (twice) from in and writes a bcrypt credential file for username.
func setAdmin(path, username string, in io.Reader) error {
	if username == "" {
		username = "admin"
	}
	r := bufio.NewReader(in)
	password, err := readLine(r)
	if err != nil {
		return err
	}
	confirm, err := readLine(r)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("empty password")
	}
	if password != confirm {
		return errors.New("passwords did not match")
	}

	hash, err := authentication.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return auth.SaveAdmin(path, models.AdminCredential{Username: username, PasswordHash: hash})
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
