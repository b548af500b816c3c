package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"goflare.io/storefront/models"
	"goflare.io/storefront/session"
)

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Log in as a random demo user",
	Long: `Log in with the demo credentials. Any other pair is rejected.

Examples:
  storefront login test password`,
	GroupID: "account",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			user, err := a.svc.Login(cmd.Context(), args[0], args[1])
			if errors.Is(err, session.ErrInvalidCredentials) {
				return errors.New("login failed: invalid username or password")
			}
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Printf("LOGGED IN %s (%s)\n", user.Name.Display(), user.ID)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Log out",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.svc.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("LOGGED OUT")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the logged-in profile",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			user, ok := a.svc.CurrentUser()
			if !ok {
				return session.ErrNotLoggedIn
			}
			printUser(user)
			return nil
		})
	},
}

var profileCmd = &cobra.Command{
	Use:     "profile",
	Short:   "Show or edit the logged-in profile",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE:    whoamiCmd.RunE,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit profile fields",
	Long: `Edit profile fields. Only the flags given are changed.

First and last name apply to users with a split name; street, number, city and
zipcode apply only when the profile has an address.

Examples:
  storefront profile edit --email jane@example.com
  storefront profile edit --first-name Jane --city Lisbon --number 12`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		edit := models.UserEdit{
			Name:      changedString(cmd, "name"),
			FirstName: changedString(cmd, "first-name"),
			LastName:  changedString(cmd, "last-name"),
			Username:  changedString(cmd, "username"),
			Email:     changedString(cmd, "email"),
			Phone:     changedString(cmd, "phone"),
			Street:    changedString(cmd, "street"),
			Number:    changedString(cmd, "number"),
			City:      changedString(cmd, "city"),
			Zipcode:   changedString(cmd, "zipcode"),
		}
		return withApp(cmd.Context(), func(a *app) error {
			user, err := a.svc.EditProfile(cmd.Context(), edit)
			if err != nil {
				return err
			}
			fmt.Println("Profile updated successfully")
			printUser(user)
			return nil
		})
	},
}

func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func printUser(user *models.User) {
	fmt.Printf("ID:       %s\n", user.ID)
	fmt.Printf("Name:     %s\n", user.Name.Display())
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Email:    %s\n", user.Email)
	fmt.Printf("Phone:    %s\n", user.Phone)
	if addr := user.Address; addr != nil {
		fmt.Printf("Address:  %d %s, %s %s\n", addr.Number, addr.Street, addr.City, addr.Zipcode)
	}
}

func init() {
	for _, name := range []string{"name", "first-name", "last-name", "username", "email", "phone", "street", "number", "city", "zipcode"} {
		profileEditCmd.Flags().String(name, "", "new "+name)
	}

	profileCmd.AddCommand(profileEditCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(profileCmd)
}
