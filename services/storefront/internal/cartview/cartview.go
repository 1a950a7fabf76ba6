package cartview

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
)

const (
	UnavailableName = "Product unavailable"
	DefaultLimit    = 8
)

type ProductFetcher interface {
	Product(ctx context.Context, id uint) (*apiclient.Product, error)
}

type Line struct {
	ItemID      uint
	ProductID   uint
	Name        string
	ImageURL    string
	Price       decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
	Unavailable bool
}

type View struct {
	Lines                []Line
	Total                decimal.Decimal
	PartiallyUnavailable bool
}

func (v View) Empty() bool { return len(v.Lines) == 0 }

// Assemble joins cart rows with live product data. Lines keep cart order.
// A line whose product cannot be fetched stays in the view with a
// placeholder name and zero price and does not count toward the total.
func Assemble(ctx context.Context, f ProductFetcher, items []apiclient.CartItem, limit int) View {
	if limit <= 0 {
		limit = DefaultLimit
	}

	lines := make([]Line, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, it := range items {
		g.Go(func() error {
			lines[i] = resolve(gctx, f, it)
			return nil
		})
	}
	_ = g.Wait()

	view := View{Lines: lines, Total: decimal.Zero}
	for _, l := range lines {
		if l.Unavailable {
			view.PartiallyUnavailable = true
			continue
		}
		view.Total = view.Total.Add(l.LineTotal)
	}
	return view
}

func resolve(ctx context.Context, f ProductFetcher, it apiclient.CartItem) Line {
	line := Line{ItemID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity}

	p, err := f.Product(ctx, it.ProductID)
	if err != nil || p == nil {
		logging.FromContext(ctx).Warn("cart_product_unavailable", "product_id", it.ProductID, "error", err)
		line.Name = UnavailableName
		line.Price = decimal.Zero
		line.LineTotal = decimal.Zero
		line.Unavailable = true
		return line
	}

	line.Name = p.Name
	line.ImageURL = p.ImageURL
	line.Price = p.Price
	line.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
	return line
}
