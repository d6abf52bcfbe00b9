package model

import "time"

// Roles assignable to a user account.
const (
	RoleAdmin   = "admin"
	RoleAdvisor = "advisor"
	RoleUser    = "user"
)

// Consultation statuses.
const (
	ConsultationPending   = "pending"
	ConsultationResponded = "responded"
)

// User is an account record.
type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	VerifyCode    string     `json:"-"`
	VerifyExpires *time.Time `json:"-"`
	ResetCode     string     `json:"-"`
	ResetExpires  *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Accessory is a catalog item with tracked stock.
type Accessory struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	ImageURL    string     `json:"image_url,omitempty"`
	Category    string     `json:"category,omitempty"`
	Stock       int        `json:"stock"`
	IsPublished bool       `json:"is_published"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Car is a catalog listing without stock tracking.
type Car struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Brand       string     `json:"brand"`
	Model       string     `json:"model"`
	Year        int        `json:"year"`
	Price       float64    `json:"price"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	IsPublished bool       `json:"is_published"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// CartLine reserves a quantity of one accessory for one user.
// The pair (UserID, AccessoryID) is unique; Quantity is mirrored by an
// equal debit from the accessory's stock.
type CartLine struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AccessoryID string    `json:"accessory_id"`
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"added_at"`
}

// Purchase is a committed checkout with an immutable priced snapshot.
type Purchase struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	TotalAmount   float64        `json:"total_amount"`
	InvoiceNumber string         `json:"invoice_number"`
	Items         []PurchaseItem `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
}

// PurchaseItem snapshots one checkout line. PriceAtPurchase decouples
// historical invoices from later price changes.
type PurchaseItem struct {
	ID              string  `json:"id"`
	PurchaseID      string  `json:"purchase_id"`
	AccessoryID     string  `json:"accessory_id"`
	AccessoryName   string  `json:"accessory_name,omitempty"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// Consultation is a user inquiry routed to an advisor.
type Consultation struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	AdvisorID  *string    `json:"advisor_id,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Message    string     `json:"message"`
	Status     string     `json:"status"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Message is one chat message inside a responded consultation.
type Message struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	ConsultationID string    `json:"consultation_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification is an in-app notice for a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
