package dashboard

// TopN caps ranking lists.
const TopN = 5

// Stats contains the financial aggregates surfaced on the dashboard.
type Stats struct {
	TotalClients    int64         `json:"totalClients"`
	SalesThisMonth  float64       `json:"salesThisMonth"`
	SalesToday      float64       `json:"salesToday"`
	AverageTicket   float64       `json:"averageTicket"`
	TotalReceivable float64       `json:"totalReceivable"`
	TotalPayable    float64       `json:"totalPayable"`
	OverdueSales    float64       `json:"overdueSales"`
	SalesByMonth    []MonthBucket `json:"salesByMonth"`
}

// MonthBucket is one month of the sales series. Months with no sales are
// omitted from the series.
type MonthBucket struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// ProductRank is one row of the top-products ranking, ordered by quantity
// sold descending with product id ascending as the tie break.
type ProductRank struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
}

// ClientRank is one row of the top-clients ranking, ordered by amount spent
// descending with client id ascending as the tie break.
type ClientRank struct {
	ClientID int64   `json:"clientId"`
	Name     string  `json:"name"`
	Total    float64 `json:"total"`
}

// PeriodTotals carries a period sum and sale count.
type PeriodTotals struct {
	Total float64
	Count int64
}
