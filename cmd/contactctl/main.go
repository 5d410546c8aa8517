// Command contactctl is a terminal client for the contacts API.
//
// Usage:
//
//	contactctl [-server URL] list
//	contactctl [-server URL] search <term>
//	contactctl [-server URL] add -name NAME -email EMAIL -phone PHONE
//	contactctl [-server URL] edit <id> [-name NAME] [-email EMAIL] [-phone PHONE]
//	contactctl [-server URL] rm <id>
//
// The server URL defaults to $CONTACTS_SERVER_URL, then http://localhost:5000.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ignite/contact-manager/internal/client"
	"github.com/ignite/contact-manager/internal/domain"
)

func main() {
	serverURL := flag.String("server", defaultServerURL(), "contacts API base URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	api := client.NewClient(*serverURL)

	var err error
	switch args[0] {
	case "list":
		err = runList(ctx, api)
	case "search":
		err = runSearch(ctx, api, args[1:])
	case "add":
		err = runAdd(ctx, api, args[1:])
	case "edit":
		err = runEdit(ctx, api, args[1:])
	case "rm":
		err = runRemove(ctx, api, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}

	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			// Server-side rejections carry a user-facing message.
			fmt.Fprintln(os.Stderr, apiErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func defaultServerURL() string {
	if url := os.Getenv("CONTACTS_SERVER_URL"); url != "" {
		return url
	}
	return "http://localhost:5000"
}

func usage() {
	fmt.Fprintln(os.Stderr, `contactctl manages contacts through the contacts API.

Commands:
  list                                        show all contacts, newest first
  search <term>                               filter contacts by name or email
  add -name NAME -email EMAIL -phone PHONE    create a contact
  edit <id> [-name N] [-email E] [-phone P]   change the given fields
  rm <id>                                     delete a contact

Flags:
  -server URL    contacts API base URL (default $CONTACTS_SERVER_URL or http://localhost:5000)`)
}

func runList(ctx context.Context, api *client.Client) error {
	cache := client.NewCache(api)
	if err := cache.Refresh(ctx); err != nil {
		return err
	}
	printContacts(cache.Contacts())
	return nil
}

func runSearch(ctx context.Context, api *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: contactctl search <term>")
	}

	cache := client.NewCache(api)
	if err := cache.Refresh(ctx); err != nil {
		return err
	}

	matches := client.Filter(cache.Contacts(), args[0])
	if len(matches) == 0 {
		fmt.Println("no contacts match")
		return nil
	}
	printContacts(matches)
	return nil
}

func runAdd(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "contact name")
	email := fs.String("email", "", "contact email")
	phone := fs.String("phone", "", "contact phone")
	fs.Parse(args)

	sess := client.NewSession(api, nil)
	sess.OpenCreate()
	sess.Name = *name
	sess.Email = *email
	sess.Phone = *phone

	saved, err := sess.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created %s (%s)\n", saved.Name, saved.ID)
	return nil
}

func runEdit(ctx context.Context, api *client.Client, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: contactctl edit <id> [-name N] [-email E] [-phone P]")
	}
	id := args[0]

	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	name := fs.String("name", "", "contact name")
	email := fs.String("email", "", "contact email")
	phone := fs.String("phone", "", "contact phone")
	fs.Parse(args[1:])

	current, err := api.Get(ctx, id)
	if err != nil {
		return err
	}

	sess := client.NewSession(api, nil)
	sess.OpenEdit(current)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			sess.Name = *name
		case "email":
			sess.Email = *email
		case "phone":
			sess.Phone = *phone
		}
	})

	saved, err := sess.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("updated %s (%s)\n", saved.Name, saved.ID)
	return nil
}

func runRemove(ctx context.Context, api *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: contactctl rm <id>")
	}
	if err := api.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("Contact deleted")
	return nil
}

func printContacts(contacts []domain.Contact) {
	if len(contacts) == 0 {
		fmt.Println("no contacts")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tCREATED")
	for _, c := range contacts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Email, c.Phone, c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
