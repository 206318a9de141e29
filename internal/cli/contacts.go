package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/internal/contacts"
)

func newContactsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the contact book",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add name address [port]",
		Short: "Add or update a contact",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := contacts.Contact{Name: args[0], Address: args[1], Port: chat.DefaultPort}
			if len(args) == 3 {
				port, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid port %q: %w", args[2], err)
				}
				c.Port = port
			}
			return a.withStore(func(s *contacts.Store) error {
				if err := s.Add(c); err != nil {
					return err
				}
				cmd.Printf("Saved %s\n", c.Endpoint())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *contacts.Store) error {
				list, err := s.List()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tADDRESS\tPORT")
				for _, c := range list {
					fmt.Fprintf(w, "%s\t%s\t%d\n", c.Name, c.Address, c.Port)
				}
				return w.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove name",
		Short: "Remove a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *contacts.Store) error {
				if err := s.Remove(args[0]); err != nil {
					return err
				}
				cmd.Printf("Removed %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import file.csv",
		Short: "Import name,address,port rows from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return a.withStore(func(s *contacts.Store) error {
				n, err := s.ImportCSV(f)
				cmd.Printf("Imported %d contacts\n", n)
				return err
			})
		},
	})

	return cmd
}

func (a *app) withStore(fn func(*contacts.Store) error) error {
	s, err := contacts.Open(a.cfg.ContactsDB)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
