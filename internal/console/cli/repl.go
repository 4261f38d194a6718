package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Health(ctx context.Context) error
	Status(ctx context.Context) error
	Refresh(ctx context.Context) error
	List(ctx context.Context, resource string, args []string) error
	Stats(ctx context.Context) error
	Decide(ctx context.Context, args []string, d services.Decision) error
	ReadAll(ctx context.Context) error
	AddVenue(ctx context.Context) error
	Checkout(ctx context.Context, t models.CheckoutType, args []string) error
	Return(ctx context.Context, args []string) error
	Resume(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: health, status, register, login, return <url>, exit"
	helpSignedIn  = "Available commands: health, status, refresh, venues [fallback], matches, clients, " +
		"notifications, stats, accept <n>, reject <n>, readall, addvenue, subscribe <venue name>, " +
		"onboard <venue name>, boost <quantity>, return <url>, resume, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF, "exit" or "quit". Handler errors are printed and the
// loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("md %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}

var errSignInFirst = errors.New("sign in first (type 'login')")

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpSignedIn)
		} else {
			printlnFn(helpAnonymous)
		}
		return nil
	case "health":
		return a.Health(ctx)
	case "status":
		return a.Status(ctx)
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "return":
		return a.Return(ctx, args)
	}

	if !a.isLoggedIn() {
		switch cmd {
		case "logout", "refresh", "venues", "matches", "clients", "notifications", "stats",
			"accept", "reject", "readall", "addvenue", "subscribe", "onboard", "boost", "resume":
			return errSignInFirst
		}
		printlnFn("Unknown command:", cmd)
		return nil
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "venues", "matches", "clients", "notifications":
		return a.List(ctx, cmd, args)
	case "stats":
		return a.Stats(ctx)
	case "accept":
		return a.Decide(ctx, args, services.DecisionAccept)
	case "reject":
		return a.Decide(ctx, args, services.DecisionReject)
	case "readall":
		return a.ReadAll(ctx)
	case "addvenue":
		return a.AddVenue(ctx)
	case "subscribe":
		return a.Checkout(ctx, models.CheckoutAddVenue, args)
	case "onboard":
		return a.Checkout(ctx, models.CheckoutOnboarding, args)
	case "boost":
		return a.Checkout(ctx, models.CheckoutBoost, args)
	case "resume":
		return a.Resume(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}
