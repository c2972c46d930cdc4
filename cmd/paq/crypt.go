// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/paqkit/paqkit/lib/bridge"
	"github.com/paqkit/paqkit/lib/crypt"
	"github.com/paqkit/paqkit/lib/secret"
)

// An encrypted file is a 32-byte random salt followed by the payload
// XORed with the key stream from offset 32, so offsets match the file.
// The key is StretchPassphrase(passphrase, salt) and the IV is the
// first 8 salt bytes.

type cryptFlags struct {
	output         string
	force          bool
	passphraseFile string
}

func (a *app) cryptCommand(name string, args []string) (*cryptFlags, string, bool, error) {
	var (
		common commonFlags
		flags  cryptFlags
	)
	flagSet := newFlagSet(name, &common)
	flagSet.StringVarP(&flags.output, "output", "o", "", "output path, - for stdout (required for file input)")
	flagSet.BoolVarP(&flags.force, "force", "f", false, "overwrite output and allow writing to a terminal")
	flagSet.StringVar(&flags.passphraseFile, "passphrase-file", "", "read the passphrase from this file, - for stdin (default from config, else prompt)")
	if ok, err := a.parse(flagSet, &common, args); !ok {
		return nil, "", false, err
	}
	if flagSet.NArg() != 1 {
		return nil, "", false, fmt.Errorf("%s takes exactly one input, got %d", name, flagSet.NArg())
	}
	if flags.passphraseFile == "" {
		flags.passphraseFile = a.config.PassphraseFile
	}
	input := flagSet.Arg(0)
	if flags.output == "" {
		flags.output = "-"
	}
	return &flags, input, true, nil
}

func (a *app) runEncrypt(args []string) error {
	flags, input, ok, err := a.cryptCommand("encrypt", args)
	if !ok {
		return err
	}
	passphrase, err := a.readPassphrase(flags.passphraseFile, input, true)
	if err != nil {
		return err
	}
	defer passphrase.Close()

	salt, err := crypt.Salt()
	if err != nil {
		return err
	}
	cipher, err := newFileCipher(passphrase, salt)
	if err != nil {
		return err
	}

	return a.transform(input, flags, func(reader io.Reader, writer io.Writer) error {
		if _, err := writer.Write(salt[:]); err != nil {
			return err
		}
		return xorStream(cipher, reader, writer)
	})
}

func (a *app) runDecrypt(args []string) error {
	flags, input, ok, err := a.cryptCommand("decrypt", args)
	if !ok {
		return err
	}
	passphrase, err := a.readPassphrase(flags.passphraseFile, input, false)
	if err != nil {
		return err
	}
	defer passphrase.Close()

	return a.transform(input, flags, func(reader io.Reader, writer io.Writer) error {
		var salt [crypt.KeySize]byte
		if _, err := io.ReadFull(reader, salt[:]); err != nil {
			return fmt.Errorf("reading salt: %w", err)
		}
		cipher, err := newFileCipher(passphrase, salt)
		if err != nil {
			return err
		}
		return xorStream(cipher, reader, writer)
	})
}

func newFileCipher(passphrase *secret.Buffer, salt [crypt.KeySize]byte) (*crypt.CTR, error) {
	key, err := crypt.StretchPassphrase(passphrase.Bytes(), salt)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	return crypt.NewCTR(key.Bytes(), salt[:crypt.IVSize])
}

func (a *app) transform(input string, flags *cryptFlags, apply func(io.Reader, io.Writer) error) error {
	reader, closeInput, err := a.openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()
	writer, closeOutput, err := a.createOutput(flags.output, flags.force)
	if err != nil {
		return err
	}
	sink := bridge.NewSink(writer)
	err = apply(reader, sink)
	return multierr.Combine(err, sink.Close(), closeOutput())
}

// xorStream copies reader to writer through the cipher, starting at
// key-stream offset KeySize.
func xorStream(cipher *crypt.CTR, reader io.Reader, writer io.Writer) error {
	buffer := make([]byte, 1<<16)
	offset := uint64(crypt.KeySize)
	for {
		n, err := reader.Read(buffer)
		if n > 0 {
			cipher.XORKeyStreamAt(buffer[:n], offset)
			offset += uint64(n)
			if _, writeErr := writer.Write(buffer[:n]); writeErr != nil {
				return writeErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readPassphrase reads from path when set, otherwise prompts on the
// terminal. Encryption prompts twice and requires a match.
func (a *app) readPassphrase(path, input string, confirm bool) (*secret.Buffer, error) {
	if path != "" {
		if path == "-" && (input == "" || input == "-") {
			return nil, fmt.Errorf("stdin cannot carry both the passphrase and the data")
		}
		return secret.ReadFromPath(path)
	}

	stdin, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(stdin.Fd())) {
		return nil, fmt.Errorf("no terminal available for a passphrase prompt (use --passphrase-file)")
	}
	first, err := prompt(a.stderr, int(stdin.Fd()), "Passphrase: ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return first, nil
	}
	second, err := prompt(a.stderr, int(stdin.Fd()), "Confirm passphrase: ")
	if err != nil {
		first.Close()
		return nil, err
	}
	defer second.Close()
	if !first.Equal(second.Bytes()) {
		first.Close()
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

func prompt(stderr io.Writer, fd int, label string) (*secret.Buffer, error) {
	fmt.Fprint(stderr, label)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("passphrase is empty")
	}
	return secret.NewFromBytes(data)
}
