package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// Mocked for unit testing.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout

	isTerminal   = terminal.IsTerminal
	readPassword = terminal.ReadPassword
)

// PromptYesOrNo asks the user a yes or no question. Anything other than an
// explicit yes is a no.
func PromptYesOrNo(prompt string) (bool, error) {
	fmt.Fprintf(stdout, "%s [y/N]: ", prompt)
	answer, err := readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PromptPassword reads a password without echoing it. When stdin isn't a
// terminal, the password is read as a plain line so that it can be piped
// in.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprintf(stdout, "%s: ", prompt)

	fd := int(os.Stdin.Fd())
	if stdin != os.Stdin || !isTerminal(fd) {
		password, err := readLine()
		if err != nil {
			return "", err
		}
		fmt.Fprintln(stdout)
		return password, nil
	}

	password, err := readPassword(fd)
	fmt.Fprintln(stdout)
	if err != nil {
		return "", errors.WithContext(err, "read password")
	}
	return string(password), nil
}

// GetPassword returns flagValue if it's set. Otherwise, it prompts for the
// Cozy's password.
func GetPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	password, err := PromptPassword("Cozy password")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", errors.MissingFieldError{Field: "password"}
	}
	return password, nil
}

func readLine() (string, error) {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", errors.WithContext(err, "read input")
	}
	return strings.TrimSpace(line), nil
}
