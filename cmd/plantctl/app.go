package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/AnshRaj112/plant-journal-backend/pkg/plantclient"
)

var errUsage = errors.New("usage")

// App runs one plantctl command against the API.
type App struct {
	client       *plantclient.Client
	out          io.Writer
	readPassword func(prompt string) (string, error)
}

func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.client.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out")
		return nil
	case "list":
		return a.list(ctx)
	case "upload":
		return a.upload(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "comment":
		return a.comment(ctx, rest)
	case "uncomment":
		return a.uncomment(ctx, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		return errUsage
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("plantctl "+name, flag.ContinueOnError)
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(fs.Lookup(n).Value.String()) == "" {
			return fmt.Errorf("-%s is required", n)
		}
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	username := fs.String("u", envOr("ADMIN_USERNAME", "abhi"), "admin username")
	if err := parse(fs, args); err != nil {
		return err
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}
	if err := a.client.Login(ctx, *username, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in")
	return nil
}

func (a *App) list(ctx context.Context) error {
	plants, err := a.client.ListPlants(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tCOMMENTS\tIMAGE")
	for _, p := range plants {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Date.Format("2006-01-02"), p.DisplayTitle(), len(p.Comments), p.Image)
	}
	return tw.Flush()
}

func (a *App) upload(ctx context.Context, args []string) error {
	fs := newFlagSet("upload")
	title := fs.String("title", "", "entry title")
	description := fs.String("description", "", "entry description")
	image := fs.String("image", "", "path to a JPG or PNG photo")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "image", "title", "description"); err != nil {
		return err
	}

	f, err := os.Open(*image)
	if err != nil {
		return err
	}
	defer f.Close()

	plant, err := a.client.CreatePlant(ctx, plantclient.NewPlant{
		Title:       *title,
		Description: *description,
		Image:       plantclient.Image{Filename: f.Name(), Body: f},
	})
	if errors.Is(err, plantclient.ErrUnavailable) {
		return fmt.Errorf("%w; run `plantctl list` to check whether the entry was saved", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s\n", plant.ID)
	return nil
}

func (a *App) update(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	id := fs.String("id", "", "entry id")
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	date := fs.String("date", "", "new date (YYYY-MM-DD or RFC 3339)")
	image := fs.String("image", "", "path to a replacement photo")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}

	var ch plantclient.PlantChanges
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			ch.Title = title
		case "description":
			ch.Description = description
		case "date":
			d, err := parseDate(*date)
			if err != nil {
				setErr = err
				return
			}
			ch.Date = &d
		}
	})
	if setErr != nil {
		return setErr
	}
	if *image != "" {
		f, err := os.Open(*image)
		if err != nil {
			return err
		}
		defer f.Close()
		ch.Image = &plantclient.Image{Filename: f.Name(), Body: f}
	}

	plant, err := a.client.UpdatePlant(ctx, *id, ch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s (%s)\n", plant.ID, plant.DisplayTitle())
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	id := fs.String("id", "", "entry id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	if err := a.client.DeletePlant(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", *id)
	return nil
}

func (a *App) comment(ctx context.Context, args []string) error {
	fs := newFlagSet("comment")
	id := fs.String("id", "", "entry id")
	text := fs.String("text", "", "comment text")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id", "text"); err != nil {
		return err
	}
	plant, err := a.client.AddComment(ctx, *id, *text)
	if err != nil {
		return err
	}
	if n := len(plant.Comments); n > 0 {
		fmt.Fprintf(a.out, "Comment %s added\n", plant.Comments[n-1].ID)
	}
	return nil
}

func (a *App) uncomment(ctx context.Context, args []string) error {
	fs := newFlagSet("uncomment")
	id := fs.String("id", "", "entry id")
	commentID := fs.String("comment", "", "comment id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id", "comment"); err != nil {
		return err
	}
	if _, err := a.client.DeleteComment(ctx, *id, *commentID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Comment %s removed\n", *commentID)
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt needs a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
