package catalog

type Product struct {
	ID       string  `json:"productId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}
