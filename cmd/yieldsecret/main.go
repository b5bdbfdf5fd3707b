package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"mktyield/internal/config"
	"mktyield/internal/security"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("yieldsecret", flag.ContinueOnError)
	fs.SetOutput(stderr)
	passphraseEnv := fs.String("passphrase-env", config.DefaultPassphraseEnv, "environment variable holding the passphrase")
	decrypt := fs.Bool("decrypt", false, "decrypt a token read from stdin instead of encrypting")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	passphrase := getenv(*passphraseEnv)
	if passphrase == "" {
		fmt.Fprintf(stderr, "%s is not set\n", *passphraseEnv)
		return 1
	}

	input, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(stderr, "failed to read input: %v\n", err)
		return 1
	}
	input = strings.TrimRight(input, "\r\n")
	if input == "" {
		fmt.Fprintln(stderr, "no input on stdin")
		return 1
	}

	var out string
	if *decrypt {
		out, err = security.DecryptSecret(input, passphrase, nil)
	} else {
		out, err = security.EncryptSecret(input, passphrase, nil)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fmt.Fprintln(stdout, out)
	return 0
}
