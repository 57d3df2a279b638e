// Package products is the AI product catalog: products stored in the
// ai_product collection, with a built-in table used when the store cannot
// serve them.
package products

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"nosam/internal/core"
	"nosam/internal/log"
	"nosam/internal/store"
)

// Tier names the source a catalog answer came from.
type Tier string

const (
	TierStore    Tier = "store"
	TierFallback Tier = "fallback"

	StatusActive = "active"
	listLimit    = 100
)

// Backend is the part of the object store the catalog reads and seeds.
type Backend interface {
	List(ctx context.Context, objectType string, limit int, includeData bool) (store.ListResult, error)
	Search(ctx context.Context, objectType, query, field string) (store.ListResult, error)
	BatchCreate(ctx context.Context, objectType string, items []core.Data) []core.StoredObject
}

var defaultProducts = []core.Product{
	{Name: "ChatGPT Plus", MonthlyPrice: 20, YearlyPrice: 200, Currency: "USD", Description: "OpenAI的高级版聊天机器人", Status: StatusActive},
	{Name: "Claude Pro", MonthlyPrice: 20, YearlyPrice: 200, Currency: "USD", Description: "Anthropic的Claude高级版", Status: StatusActive},
	{Name: "GitHub Copilot", MonthlyPrice: 10, YearlyPrice: 100, Currency: "USD", Description: "AI代码助手", Status: StatusActive},
	{Name: "Midjourney", MonthlyPrice: 10, YearlyPrice: 96, Currency: "USD", Description: "AI图像生成工具", Status: StatusActive},
	{Name: "Notion AI", MonthlyPrice: 10, YearlyPrice: 96, Currency: "USD", Description: "Notion AI助手", Status: StatusActive},
	{Name: "Kimi", MonthlyPrice: 79, YearlyPrice: 790, Currency: "CNY", Description: "Kimi智能助手会员", Status: StatusActive},
	{Name: "文心一言", MonthlyPrice: 59, YearlyPrice: 590, Currency: "CNY", Description: "百度文心一言会员", Status: StatusActive},
	{Name: "通义千问", MonthlyPrice: 68, YearlyPrice: 680, Currency: "CNY", Description: "阿里通义千问专业版", Status: StatusActive},
	{Name: "讯飞星火", MonthlyPrice: 99, YearlyPrice: 990, Currency: "CNY", Description: "讯飞星火认知大模型", Status: StatusActive},
	{Name: "智谱清言", MonthlyPrice: 49, YearlyPrice: 490, Currency: "CNY", Description: "智谱AI助手", Status: StatusActive},
}

// Defaults returns a copy of the built-in product table.
func Defaults() []core.Product {
	return append([]core.Product(nil), defaultProducts...)
}

type Catalog struct {
	backend Backend
	logger  *log.Logger
}

func NewCatalog(backend Backend, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Discard()
	}
	return &Catalog{backend: backend, logger: logger.WithComponent(log.ComponentProducts)}
}

// Active returns the active products. The built-in table answers when the
// store fails or holds no products at all.
func (c *Catalog) Active(ctx context.Context) ([]core.Product, Tier) {
	res, err := c.backend.List(ctx, core.TypeProduct, listLimit, true)
	if err != nil || res.Total == 0 {
		c.fellBack(ctx, "active", err)
		return Defaults(), TierFallback
	}
	return activeOnly(res.Items), TierStore
}

// Search matches query against product names in the store, or against
// names and descriptions of the built-in table.
func (c *Catalog) Search(ctx context.Context, query string) ([]core.Product, Tier) {
	if ok, err := c.hasProducts(ctx); !ok {
		c.fellBack(ctx, "search", err)
		return searchDefaults(query), TierFallback
	}
	res, err := c.backend.Search(ctx, core.TypeProduct, query, "name")
	if err != nil {
		c.fellBack(ctx, "search", err)
		return searchDefaults(query), TierFallback
	}
	return activeOnly(res.Items), TierStore
}

// Details returns the product with exactly this name. Inactive products
// are returned too.
func (c *Catalog) Details(ctx context.Context, name string) (core.Product, bool, Tier) {
	if ok, err := c.hasProducts(ctx); ok {
		res, err := c.backend.Search(ctx, core.TypeProduct, name, "name")
		if err == nil {
			for _, item := range res.Items {
				if item.ObjectData.String("name") == name {
					return core.ProductFromData(item.ObjectData), true, TierStore
				}
			}
			return core.Product{}, false, TierStore
		}
		c.fellBack(ctx, "details", err)
	} else {
		c.fellBack(ctx, "details", err)
	}
	for _, p := range defaultProducts {
		if p.Name == name {
			return p, true, TierFallback
		}
	}
	return core.Product{}, false, TierFallback
}

// SeedDefaults stores the built-in products when the collection is empty
// and returns how many were created.
func (c *Catalog) SeedDefaults(ctx context.Context) (int, error) {
	res, err := c.backend.List(ctx, core.TypeProduct, 1, false)
	if err != nil {
		return 0, err
	}
	if res.Total > 0 {
		return 0, nil
	}
	items := make([]core.Data, 0, len(defaultProducts))
	for _, p := range defaultProducts {
		items = append(items, p.ToData())
	}
	created := c.backend.BatchCreate(ctx, core.TypeProduct, items)
	c.logger.InfoContext(ctx, "Seeded default products", log.FieldOperation, log.OpSeed, log.FieldCount, len(created))
	return len(created), nil
}

func (c *Catalog) hasProducts(ctx context.Context) (bool, error) {
	res, err := c.backend.List(ctx, core.TypeProduct, 1, false)
	if err != nil {
		return false, err
	}
	return res.Total > 0, nil
}

func (c *Catalog) fellBack(ctx context.Context, op string, err error) {
	args := []any{log.FieldOperation, op, log.FieldProductSource, TierFallback}
	if err != nil {
		args = append(args, log.FieldError, err)
		c.logger.WarnContext(ctx, "Product store unavailable, using built-in catalog", args...)
		return
	}
	c.logger.DebugContext(ctx, "Product store empty, using built-in catalog", args...)
}

func activeOnly(items []core.StoredObject) []core.Product {
	out := make([]core.Product, 0, len(items))
	for _, item := range items {
		if item.ObjectData.String("status") == StatusActive {
			out = append(out, core.ProductFromData(item.ObjectData))
		}
	}
	return out
}

func searchDefaults(query string) []core.Product {
	fold := cases.Fold()
	q := fold.String(query)
	var out []core.Product
	for _, p := range defaultProducts {
		if strings.Contains(fold.String(p.Name), q) || strings.Contains(fold.String(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}
