// Command hashpw prints a bcrypt hash suitable for the users.password_hash
// column. The password is read from the terminal without echo, or from the
// first line of stdin when stdin is not a terminal.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/server/auth"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(in *os.File, out, prompt io.Writer) error {
	var password []byte
	var err error

	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		password, err = term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(prompt)
	} else {
		password, err = readLine(in)
	}
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	return printHash(out, password)
}

func readLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

func printHash(out io.Writer, password []byte) error {
	if len(password) == 0 {
		return errors.New("empty password")
	}
	hash, err := auth.HashPassword(string(password))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
