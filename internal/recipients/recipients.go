// Package recipients loads reward recipient addresses from a one-address-per-line file.
package recipients

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aptos-labs/aptos-go-sdk"
)

// FileError reports that the address file could not be opened or read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("address file %s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// ParseError reports a non-blank line that is not a valid account address.
type ParseError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: invalid address %q: %v", e.Path, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads every non-blank line of path as an account address, in file order.
// Duplicates are kept.
func Load(ctx context.Context, path string) ([]aptos.AccountAddress, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer file.Close()

	var addrs []aptos.AccountAddress
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		addr, err := ParseAddress(text)
		if err != nil {
			return nil, &ParseError{Path: path, Line: line, Text: text, Err: err}
		}
		addrs = append(addrs, addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return addrs, nil
}

// ParseAddress accepts long and short hex forms, with or without 0x.
func ParseAddress(s string) (aptos.AccountAddress, error) {
	var addr aptos.AccountAddress
	if err := addr.ParseStringRelaxed(strings.TrimSpace(s)); err != nil {
		return aptos.AccountAddress{}, err
	}
	return addr, nil
}

// Duplicates returns each address that occurs more than once with its count,
// ordered by first occurrence.
func Duplicates(addrs []aptos.AccountAddress) []Duplicate {
	counts := make(map[aptos.AccountAddress]int, len(addrs))
	var order []aptos.AccountAddress
	for _, a := range addrs {
		if counts[a] == 0 {
			order = append(order, a)
		}
		counts[a]++
	}
	var out []Duplicate
	for _, a := range order {
		if counts[a] > 1 {
			out = append(out, Duplicate{Address: a, Count: counts[a]})
		}
	}
	return out
}

// Duplicate is an address listed Count times.
type Duplicate struct {
	Address aptos.AccountAddress
	Count   int
}
