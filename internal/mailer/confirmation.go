package mailer

// Confirmation is the order summary posted to the confirmation emailer.
type Confirmation struct {
	OrderID      string       `json:"order_id"`
	UserDetails  UserDetails  `json:"user_details"`
	Items        []Item       `json:"items"`
	PriceDetails PriceDetails `json:"price_details"`
	Payment      Payment      `json:"payment"`
}

type UserDetails struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	Country   string `json:"country"`
	ZipCode   string `json:"zip_code"`
	Phone     string `json:"phone"`
	OrderNote string `json:"order_note"`
}

// Item is a flattened cart line. Unset fields carry the display placeholders.
type Item struct {
	Name            string  `json:"name"`
	Size            string  `json:"size"`
	Color           string  `json:"color"`
	Quantity        int     `json:"quantity"`
	TotalPrice      float64 `json:"total_price"`
	Personalization string  `json:"personalization"`
	Pack            string  `json:"pack"`
	Box             string  `json:"box"`
}

type PriceDetails struct {
	Subtotal                 float64 `json:"subtotal"`
	ShippingCost             float64 `json:"shipping_cost"`
	NewsletterDiscountAmount float64 `json:"newsletter_discount_amount"`
	FinalTotal               float64 `json:"final_total"`
}

type Payment struct {
	Method string `json:"method"`
}
