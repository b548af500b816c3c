package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"goflare.io/storefront/session"
)

var cartCmd = &cobra.Command{
	Use:     "cart",
	Short:   "Show and change the cart",
	GroupID: "cart",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), showCart(cmd))
	},
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE:  cartCmd.RunE,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Long: `Add a product. Adding a product already in the cart raises its quantity.

Examples:
  storefront cart add 3
  storefront cart add 3 --qty 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, _ := cmd.Flags().GetInt("qty")
		return withApp(cmd.Context(), func(a *app) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			item, err := a.svc.AddToCart(cmd.Context(), args[0], qty)
			if err != nil {
				return err
			}
			fmt.Printf("ADDED %s x%d\n", item.Name, item.Quantity)
			return nil
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:     "remove <product-id>",
	Short:   "Remove a product from the cart",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cartMutation(cmd, func(a *app) {
			a.svc.RemoveItemFromCart(args[0])
		})
	},
}

var cartSetCmd = &cobra.Command{
	Use:   "set <product-id> <quantity>",
	Short: "Set the quantity of a cart line (0 removes it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		return cartMutation(cmd, func(a *app) {
			a.svc.UpdateCartItemQuantity(args[0], qty)
		})
	},
}

var cartIncCmd = &cobra.Command{
	Use:   "inc <product-id>",
	Short: "Increase the quantity of a cart line by one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cartMutation(cmd, func(a *app) {
			a.svc.IncreaseCartItem(args[0])
		})
	},
}

var cartDecCmd = &cobra.Command{
	Use:   "dec <product-id>",
	Short: "Decrease the quantity of a cart line by one (removes it at one)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cartMutation(cmd, func(a *app) {
			a.svc.DecreaseCartItem(args[0])
		})
	},
}

func requireLogin(a *app) error {
	if _, ok := a.svc.CurrentUser(); !ok {
		return fmt.Errorf("%w: run 'storefront login test password' first", session.ErrNotLoggedIn)
	}
	return nil
}

func cartMutation(cmd *cobra.Command, fn func(a *app)) error {
	return withApp(cmd.Context(), func(a *app) error {
		if err := requireLogin(a); err != nil {
			return err
		}
		fn(a)
		return showCart(cmd)(a)
	})
}

func showCart(cmd *cobra.Command) func(a *app) error {
	return func(a *app) error {
		items, err := a.svc.CartItems(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Your cart is empty")
			return nil
		}
		for _, item := range items {
			fmt.Printf("%4s  %3d x %9s  %s\n", item.ID, item.Quantity, formatPrice(item.Price), item.Name)
		}
		summary := items.Summary()
		fmt.Printf("Total: %s (%s)\n", formatPrice(summary.Subtotal), summary.Currency)
		return nil
	}
}

func init() {
	cartAddCmd.Flags().Int("qty", 1, "quantity to add")

	cartCmd.AddCommand(cartShowCmd)
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartRemoveCmd)
	cartCmd.AddCommand(cartSetCmd)
	cartCmd.AddCommand(cartIncCmd)
	cartCmd.AddCommand(cartDecCmd)
	rootCmd.AddCommand(cartCmd)
}
