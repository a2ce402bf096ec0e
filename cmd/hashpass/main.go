// Command hashpass prints bcrypt hashes for seeding the users table.
//
//	go run ./cmd/hashpass secret1 secret2
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

const cost = 10

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password> [password...]")
		os.Exit(2)
	}

	for _, pw := range os.Args[1:] {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s -> %s\n", pw, hash)
	}
}
