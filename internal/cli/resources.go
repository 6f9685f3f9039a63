package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/liquor-catalog/pkg/bag"
)

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", arg)
	}
	return id, nil
}

func newProductCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product ID",
		Short: "Show a single product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			product, err := s.catalog.Product(cmd.Context(), id)
			if err != nil {
				return err
			}
			return s.out.item(product)
		},
	}
}

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := queryParams(cmd)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			products, page, err := s.catalog.ProductsPage(cmd.Context(), params...)
			if err != nil {
				return err
			}
			return s.out.list(productListing(products.Values(), page))
		},
	}
	listFlags(cmd)
	return cmd
}

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price ID",
		Short: "Show a single price record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			price, err := s.catalog.Price(cmd.Context(), id)
			if err != nil {
				return err
			}
			return s.out.item(price)
		},
	}
}

func newPricesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "List price records, optionally for one product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := queryParams(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("product") {
				pid, _ := cmd.Flags().GetInt("product")
				if pid <= 0 {
					return fmt.Errorf("--product must be a positive integer")
				}
				params = append(params, bag.Entry[string]{Key: "product", Value: strconv.Itoa(pid)})
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			prices, page, err := s.catalog.PricesPage(cmd.Context(), params...)
			if err != nil {
				return err
			}
			return s.out.list(priceListing(prices.Values(), page))
		},
	}
	listFlags(cmd)
	cmd.Flags().Int("product", 0, "only list prices of this product id")
	return cmd
}

func newStoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store ID",
		Short: "Show a single store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			store, err := s.catalog.Store(cmd.Context(), id)
			if err != nil {
				return err
			}
			return s.out.item(store)
		},
	}
}

func newStoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := queryParams(cmd)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			stores, page, err := s.catalog.StoresPage(cmd.Context(), params...)
			if err != nil {
				return err
			}
			return s.out.list(storeListing(stores.Values(), page))
		},
	}
	listFlags(cmd)
	return cmd
}
