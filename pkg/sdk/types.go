package sdk

import "time"

// Role names as they travel on the wire.
const (
	RoleUser   = "user"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User is the backend's record of a platform user.
type User struct {
	Email       string    `json:"email" bexpr:"email"`
	Name        string    `json:"name,omitempty" bexpr:"name"`
	PhotoURL    string    `json:"photoUrl,omitempty" bexpr:"-"`
	Role        string    `json:"role" bexpr:"role"`
	CreatedAt   time.Time `json:"createdAt" bexpr:"-"`
	LastLoginAt time.Time `json:"lastLoginAt" bexpr:"-"`
}

// CreateUserInput is the payload for the user-creation endpoint.
type CreateUserInput struct {
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	DefaultRole string    `json:"defaultRole"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// Court is a bookable court. PricePerSlot is in minor currency units.
type Court struct {
	ID           string   `json:"id" bexpr:"id"`
	Name         string   `json:"name" bexpr:"name"`
	Type         string   `json:"type" bexpr:"type"`
	ImageURL     string   `json:"imageUrl,omitempty" bexpr:"-"`
	PricePerSlot int64    `json:"pricePerSlot" bexpr:"price"`
	Slots        []string `json:"slots" bexpr:"slots"`
}

// CourtInput creates or updates a court.
type CourtInput struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	PricePerSlot int64    `json:"pricePerSlot"`
	Slots        []string `json:"slots"`
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a request to use a court for one or more slots on a date.
type Booking struct {
	ID        string        `json:"id" bexpr:"id"`
	Email     string        `json:"email" bexpr:"email"`
	CourtID   string        `json:"courtId" bexpr:"court_id"`
	CourtName string        `json:"courtName" bexpr:"court"`
	Date      string        `json:"date" bexpr:"date"`
	Slots     []string      `json:"slots" bexpr:"slots"`
	Price     int64         `json:"price" bexpr:"price"`
	Status    BookingStatus `json:"status" bexpr:"status"`
	CreatedAt time.Time     `json:"createdAt" bexpr:"-"`
}

// CreateBookingInput is the payload for a new booking request.
type CreateBookingInput struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	CourtID   string   `json:"courtId"`
	CourtName string   `json:"courtName"`
	Date      string   `json:"date"`
	Slots     []string `json:"slots"`
	Price     int64    `json:"price"`
}

// BookingQuery filters ListBookings. Empty fields are not sent.
type BookingQuery struct {
	Email  string
	Status BookingStatus
}

// Coupon grants a percentage discount while active and unexpired.
type Coupon struct {
	ID              string     `json:"id" bexpr:"id"`
	Code            string     `json:"code" bexpr:"code"`
	DiscountPercent int        `json:"discountPercent" bexpr:"discount"`
	Description     string     `json:"description,omitempty" bexpr:"-"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty" bexpr:"-"`
	Active          bool       `json:"active" bexpr:"active"`
}

// CouponInput creates or updates a coupon.
type CouponInput struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discountPercent"`
	Description     string     `json:"description,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	Active          bool       `json:"active"`
}

// Announcement is a club notice. Body is markdown.
type Announcement struct {
	ID        string    `json:"id" bexpr:"id"`
	Title     string    `json:"title" bexpr:"title"`
	Body      string    `json:"body" bexpr:"-"`
	Author    string    `json:"author" bexpr:"author"`
	CreatedAt time.Time `json:"createdAt" bexpr:"-"`
}

// AnnouncementInput creates an announcement.
type AnnouncementInput struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Author string `json:"author"`
}

// PaymentIntent is the processor-side handle the hosted payment form completes.
type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// Payment records a completed charge against a booking.
type Payment struct {
	ID            string    `json:"id,omitempty" bexpr:"id"`
	BookingID     string    `json:"bookingId" bexpr:"booking_id"`
	Email         string    `json:"email" bexpr:"email"`
	Amount        int64     `json:"amount" bexpr:"amount"`
	CouponCode    string    `json:"couponCode,omitempty" bexpr:"coupon"`
	TransactionID string    `json:"transactionId" bexpr:"transaction_id"`
	PaidAt        time.Time `json:"paidAt" bexpr:"-"`
}
