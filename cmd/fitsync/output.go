package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"fitsync-go/internal/app"
	"fitsync-go/internal/fitsync"

	"golang.org/x/term"
)

var errNoPassphrase = errors.New("no passphrase: set " + app.PassphraseEnv + " or run in a terminal")

// render prints a command's result. In JSON mode data and err are written as
// one envelope; otherwise err is returned to cobra and human prints data.
func render(data any, err error, human func()) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(fitsync.NewEnvelope(data, err)); encErr != nil {
			return fmt.Errorf("writing output: %w", encErr)
		}
		return err
	}
	if err != nil {
		return err
	}
	if human != nil {
		human()
	}
	return nil
}

// readPassphrase takes the passphrase from the environment, or prompts on
// the terminal. With confirm set the prompt is repeated and both entries must
// match.
func readPassphrase(prompt string, confirm bool) (string, error) {
	if pass := os.Getenv(app.PassphraseEnv); pass != "" {
		return pass, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoPassphrase
	}

	read := func(p string) (string, error) {
		fmt.Fprint(os.Stderr, p)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	pass, err := read(prompt)
	if err != nil {
		return "", err
	}
	if pass == "" {
		return "", fmt.Errorf("passphrase cannot be empty")
	}
	if confirm {
		again, err := read("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if again != pass {
			return "", fmt.Errorf("passphrases do not match")
		}
	}
	return pass, nil
}

func printProfile(p *fitsync.Profile) {
	if p == nil {
		fmt.Println("No profile yet. Create one with `fitsync profile update`.")
		return
	}
	fmt.Printf("ID:       %s\n", p.ID)
	fmt.Printf("Name:     %s\n", p.DisplayName)
	fmt.Printf("Username: %s\n", p.Username)
	if p.Bio != "" {
		fmt.Printf("Bio:      %s\n", p.Bio)
	}
	if p.AvatarURL != "" {
		fmt.Printf("Avatar:   %s\n", p.AvatarURL)
	}
	fmt.Printf("Private:  %t\n", p.IsPrivate)
	if len(p.Badges) > 0 {
		fmt.Printf("Badges:   %s\n", strings.Join(p.Badges, ", "))
	}
}

func printMembers(title string, members []fitsync.CrewMember) {
	fmt.Printf("%s (%d)\n", title, len(members))
	for _, m := range members {
		name := m.Profile.DisplayName
		if m.Profile.Username != "" {
			name += " @" + m.Profile.Username
		}
		fmt.Printf("    %s  %s\n", m.ID, name)
	}
}

func printExercises(exercises []fitsync.Exercise) {
	if len(exercises) == 0 {
		fmt.Println("No exercises.")
		return
	}
	for _, e := range exercises {
		custom := ""
		if e.IsCustom {
			custom = "  [custom]"
		}
		fmt.Printf("%-36s  %-10s  %s%s\n", e.ID, e.MuscleGroup, e.Name, custom)
	}
}

func printSet(s *fitsync.Set) {
	mark := " "
	if s.IsCompleted {
		mark = "x"
	}
	fmt.Printf("[%s] #%d  %g x %d  %s\n", mark, s.SetNumber, s.Weight, s.Reps, s.ID)
}
