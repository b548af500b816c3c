package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goflare.io/storefront/models"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products",
	Long: `List catalog products, optionally narrowed to one category.

Examples:
  storefront products
  storefront products --category electronics`,
	GroupID: "catalog",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		return withApp(cmd.Context(), func(a *app) error {
			products, err := a.svc.ListCategoryProducts(cmd.Context(), category)
			if err != nil {
				return fmt.Errorf("unable to fetch products: %w", err)
			}
			for _, p := range products {
				fmt.Printf("%4d  %9s  %s\n", p.ID, formatPrice(p.Price), p.Title)
			}
			return nil
		})
	},
}

var productCmd = &cobra.Command{
	Use:     "product <id>",
	Short:   "Show product detail",
	GroupID: "catalog",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			p, err := a.svc.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", p.Title)
			fmt.Printf("Price:    %s\n", formatPrice(p.Price))
			if p.Category != "" {
				fmt.Printf("Category: %s\n", p.Category)
			}
			if p.Rating != nil {
				fmt.Printf("Rating:   %.1f (%d reviews)\n", p.Rating.Rate, p.Rating.Count)
			}
			if p.Description != "" {
				fmt.Printf("\n%s\n", strings.TrimSpace(p.Description))
			}
			return nil
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Short:   "List categories",
	GroupID: "catalog",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			categories, err := a.svc.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range categories {
				fmt.Println(c.ID)
			}
			return nil
		})
	},
}

func formatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}

func init() {
	productsCmd.Flags().String("category", models.CategoryAll, "category to list")

	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(categoriesCmd)
}
