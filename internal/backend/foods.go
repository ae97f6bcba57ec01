package backend

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/eatbalance/web/internal"
)

// MaxSearchResults caps the list shown to the user.
const MaxSearchResults = 15

type searchBody struct {
	Nombre string `json:"nombre"`
}

type codeBody struct {
	Code string `json:"code"`
}

// SearchProducts looks foods up by name. The backend has answered with a
// bare list, {"products": [...]} and {"resultados": [...]} over time, and with
// either its own Spanish keys or raw Open Food Facts keys per entry.
func (c *Client) SearchProducts(ctx context.Context, name string) ([]internal.Food, error) {
	var raw json.RawMessage
	if err := c.postJSON(ctx, "/buscar-productos", "", searchBody{Nombre: name}, &raw); err != nil {
		return nil, err
	}
	return normaliseFoods(raw), nil
}

func normaliseFoods(raw json.RawMessage) []internal.Food {
	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Products   []map[string]interface{} `json:"products"`
			Resultados []map[string]interface{} `json:"resultados"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return []internal.Food{}
		}
		entries = wrapped.Products
		if len(entries) == 0 {
			entries = wrapped.Resultados
		}
	}

	foods := make([]internal.Food, 0, len(entries))
	for _, it := range entries {
		obj := it
		if nested, ok := it["product"].(map[string]interface{}); ok {
			obj = nested
		}
		f := internal.Food{
			Code:  firstString(obj, it, "code", "_id", "id"),
			Name:  firstString(obj, it, "product_name_es", "product_name", "nombre", "generic_name_es", "generic_name"),
			Brand: firstString(obj, it, "marca", "brands"),
			Image: firstString(obj, it, "image_front_small_url", "image_url"),
		}
		if f.Name == "" {
			continue
		}
		foods = append(foods, f)
		if len(foods) == MaxSearchResults {
			break
		}
	}
	return foods
}

type detailWire struct {
	Nombre     string                 `json:"nombre"`
	Name       string                 `json:"product_name"`
	Marca      string                 `json:"marca"`
	Brands     string                 `json:"brands"`
	Nutrientes map[string]interface{} `json:"nutrientes_por_100g"`
	Nutriments map[string]interface{} `json:"nutriments"`
	Product    *detailWire            `json:"product"`
}

// ProductByCode fetches the per-100 g record of one product.
func (c *Client) ProductByCode(ctx context.Context, code string) (*internal.FoodDetail, error) {
	var w detailWire
	if err := c.postJSON(ctx, "/producto-id", "", codeBody{Code: code}, &w); err != nil {
		return nil, err
	}
	if w.Product != nil {
		w = *w.Product
	}
	d := &internal.FoodDetail{
		Code:  code,
		Name:  firstNonEmpty(w.Nombre, w.Name),
		Brand: firstNonEmpty(w.Marca, w.Brands),
	}
	src := w.Nutrientes
	if src == nil {
		src = w.Nutriments
	}
	d.Per100g = internal.Nutrients{
		Kcal:     pick(src, "calorias", "energy-kcal_100g"),
		ProteinG: pick(src, "proteinas", "proteins_100g"),
		FatG:     pick(src, "grasas", "fat_100g"),
		CarbG:    pick(src, "carbohidratos", "carbohydrates_100g"),
		SugarG:   pick(src, "azucares", "sugars_100g"),
		FiberG:   pick(src, "fibra", "fiber_100g"),
	}
	if d.Per100g.Kcal == nil {
		if kj := pick(src, "energy_100g"); kj != nil {
			kcal := math.Round(*kj / 4.184)
			d.Per100g.Kcal = &kcal
		}
	}
	return d, nil
}

func pick(m map[string]interface{}, keys ...string) *float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return &v
		case string:
			if f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func firstString(primary, fallback map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		for _, m := range []map[string]interface{}{primary, fallback} {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
