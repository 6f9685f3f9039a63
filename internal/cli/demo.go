package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
)

// newDemoCmd walks through every catalog call once: one product, price and
// store by id, then the first page of each listing.
func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Fetch a sample of every resource type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetInt("id")
			if id <= 0 {
				return fmt.Errorf("--id must be a positive integer")
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), s.catalog, s.out, id)
		},
	}
	cmd.Flags().Int("id", 1, "id used for the single product, price and store lookups")
	return cmd
}

func runDemo(ctx context.Context, cat *catalog.Catalog, out *printer, id int) error {
	steps := []struct {
		title string
		run   func() error
	}{
		{fmt.Sprintf("product %d", id), func() error {
			v, err := cat.Product(ctx, id)
			if err != nil {
				return err
			}
			return out.item(v)
		}},
		{fmt.Sprintf("price %d", id), func() error {
			v, err := cat.Price(ctx, id)
			if err != nil {
				return err
			}
			return out.item(v)
		}},
		{fmt.Sprintf("store %d", id), func() error {
			v, err := cat.Store(ctx, id)
			if err != nil {
				return err
			}
			return out.item(v)
		}},
		{"products", func() error {
			v, page, err := cat.ProductsPage(ctx)
			if err != nil {
				return err
			}
			return out.list(productListing(v.Values(), page))
		}},
		{"prices", func() error {
			v, page, err := cat.PricesPage(ctx)
			if err != nil {
				return err
			}
			return out.list(priceListing(v.Values(), page))
		}},
		{"stores", func() error {
			v, page, err := cat.StoresPage(ctx)
			if err != nil {
				return err
			}
			return out.list(storeListing(v.Values(), page))
		}},
	}

	var errs []error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out.heading(step.title)
		if err := step.run(); err != nil {
			if out.format == outputText {
				fmt.Fprintln(out.w, out.colors.fail.Sprint(err.Error()))
			}
			errs = append(errs, fmt.Errorf("%s: %w", step.title, err))
		}
	}
	return errors.Join(errs...)
}
