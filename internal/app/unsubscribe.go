package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"congresssignal.com/signal/internal/cli"
	"congresssignal.com/signal/internal/globaltime"
)

func runUnsubscribe(args []string) int {
	fs := flag.NewFlagSet("unsubscribe", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	email := fs.String("email", "", "Subscriber email address")
	pro := fs.Bool("pro", false, "Unsubscribe from the pro tier instead of standard")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "unsubscribe does not accept positional arguments")
		return 2
	}

	address := strings.TrimSpace(*email)
	if address == "" {
		fmt.Fprintln(os.Stderr, "--email is required")
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	now := globaltime.UTC()
	tier := "standard"
	var affected int64
	if *pro {
		tier = "pro"
		affected, err = pool.UnsubscribeProByEmail(ctx, address, now)
	} else {
		affected, err = pool.UnsubscribeByEmail(ctx, address, now)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unsubscribe: %v\n", err)
		return 1
	}

	if affected == 0 {
		fmt.Printf("tier=%s email=%s unsubscribed=0 (no active subscription found)\n", tier, address)
		return 0
	}
	fmt.Printf("tier=%s email=%s unsubscribed=%d\n", tier, address, affected)
	return 0
}
