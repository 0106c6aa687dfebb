package upstream

// Payment is a receipt as returned by the commerce API. Optional fields are
// pointers; amounts are decimal major units as sent upstream.
type Payment struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	FinalAmount *float64    `json:"final_amount"`
	Currency    string      `json:"currency"`
	CreatedAt   *int64      `json:"created_at"`
	PaidAt      *int64      `json:"paid_at"`
	RefundedAt  *int64      `json:"refunded_at"`
	AccessPass  *AccessPass `json:"access_pass"`
	Membership  *Reference  `json:"membership"`
	Member      *Member     `json:"member"`
}

// AccessPass is the product reference embedded in payments and members.
type AccessPass struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	Stock      *int64 `json:"stock"`
}

// Member is a customer record; membership fields are embedded in it.
type Member struct {
	ID                 string       `json:"id"`
	Status             string       `json:"status"`
	Valid              *bool        `json:"valid"`
	CreatedAt          *int64       `json:"created_at"`
	ExpiresAt          *int64       `json:"expires_at"`
	RenewalPeriodStart *int64       `json:"renewal_period_start"`
	RenewalPeriodEnd   *int64       `json:"renewal_period_end"`
	CancelAtPeriodEnd  bool         `json:"cancel_at_period_end"`
	AccessPasses       []AccessPass `json:"access_passes"`
	User               *Reference   `json:"user"`
}

// Reference is a bare {id} object.
type Reference struct {
	ID string `json:"id"`
}

type pagination struct {
	CurrentPage int  `json:"current_page"`
	NextPage    *int `json:"next_page"`
	TotalPages  int  `json:"total_page"`
}

type listResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination pagination `json:"pagination"`
}
