package main

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/germanamz/gmail-agent/pkg/failure"
	"github.com/germanamz/gmail-agent/pkg/mailagent"
)

// askInstruction prompts for an instruction on the terminal.
func askInstruction(ctx context.Context) (string, error) {
	var instruction string

	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("What should I do with your email?").
			Placeholder("e.g. Create a label called Receipts").
			Value(&instruction).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("instruction is required")
				}
				return nil
			}),
	)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return "", failure.Wrap(failure.ErrConfiguration, "gmail-agent", mailagent.ErrEmptyInstruction)
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(instruction), nil
}
