package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Category struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Description  string `json:"description"`
	CategoryType string `json:"category_type"`
	DisplayOrder int    `gorm:"default:0"                json:"display_order"`
	IsActive     bool   `gorm:"default:true"             json:"is_active"`
}

type Brand struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"unique;not null"          json:"name"`
	Description string `json:"description"`
	Country     string `json:"country"`
	IsActive    bool   `gorm:"default:true"             json:"is_active"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `json:"description"`
	Price       float64   `gorm:"not null"                 json:"price"`
	Stock       int       `gorm:"default:0"                json:"stock"`
	CategoryID  uint      `gorm:"index"                    json:"category_id"`
	ProductType string    `gorm:"default:parfum"           json:"product_type"`
	Size        string    `json:"size"`
	Brand       string    `json:"brand"`
	ImageURL    string    `json:"image_url"`
	IsFeatured  bool      `gorm:"default:false"            json:"is_featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Review struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"                     json:"id"`
	ProductID  uint      `gorm:"not null;uniqueIndex:idx_review_product_user" json:"product_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_review_product_user" json:"user_id"`
	Rating     int       `gorm:"not null"                                     json:"rating"`
	Comment    string    `json:"comment"`
	IsVerified bool      `gorm:"default:false"                                json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type Coupon struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string     `gorm:"unique;not null"          json:"code"`
	DiscountType  string     `gorm:"not null"                 json:"discount_type"`
	DiscountValue float64    `gorm:"not null"                 json:"discount_value"`
	MinPurchase   float64    `gorm:"default:0"                json:"min_purchase"`
	MaxUses       int        `json:"max_uses"`
	UsedCount     int        `gorm:"default:0"                json:"used_count"`
	IsActive      bool       `gorm:"default:true"             json:"is_active"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Order struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"index;not null"           json:"user_id"`
	OrderNumber     string    `gorm:"unique"                   json:"order_number"`
	Status          string    `gorm:"default:pending"          json:"status"`
	TotalAmount     float64   `gorm:"not null"                 json:"total_amount"`
	ShippingAddress string    `json:"shipping_address"`
	Phone           string    `json:"phone"`
	PaymentMethod   string    `json:"payment_method"`
	PaymentStatus   string    `gorm:"default:pending"          json:"payment_status"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint    `gorm:"index;not null"           json:"order_id"`
	ProductID uint    `gorm:"not null"                 json:"product_id"`
	Quantity  uint    `gorm:"not null"                 json:"quantity"`
	Price     float64 `gorm:"not null"                 json:"price"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"                 json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type WishlistItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wish_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_wish_user_product" json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}

type BlogPost struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string    `gorm:"not null"                 json:"title"`
	Slug         string    `gorm:"unique;not null"          json:"slug"`
	Content      string    `gorm:"not null"                 json:"content"`
	Excerpt      string    `json:"excerpt"`
	Author       string    `gorm:"default:Admin"            json:"author"`
	BlogCategory string    `json:"blog_category"`
	IsPublished  bool      `gorm:"default:false"            json:"is_published"`
	Views        int       `gorm:"default:0"                json:"views"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type LoyaltyAccount struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null"     json:"user_id"`
	Points      int       `gorm:"default:0"                json:"points"`
	TotalEarned int       `gorm:"default:0"                json:"total_earned"`
	TotalSpent  int       `gorm:"default:0"                json:"total_spent"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type LoyaltyTransaction struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID   uint      `gorm:"index;not null"           json:"account_id"`
	Points      int       `gorm:"not null"                 json:"points"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	OrderID     *uint     `json:"order_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type LoyaltyReward struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"not null"                 json:"name"`
	Description    string    `json:"description"`
	PointsRequired int       `gorm:"not null"                 json:"points_required"`
	RewardType     string    `json:"reward_type"`
	RewardValue    float64   `json:"reward_value"`
	ProductID      *uint     `json:"product_id"`
	TimesRedeemed  int       `gorm:"default:0"                json:"times_redeemed"`
	IsActive       bool      `gorm:"default:true"             json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Notification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"not null"                 json:"type"`
	Title     string    `gorm:"not null"                 json:"title"`
	Message   string    `gorm:"not null"                 json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `gorm:"default:false"            json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginAttempt struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IPAddress   string    `gorm:"index;not null"           json:"ip_address"`
	Username    string    `json:"username"`
	AttemptTime time.Time `gorm:"index;not null"           json:"attempt_time"`
	Success     bool      `gorm:"default:false"            json:"success"`
	UserAgent   string    `json:"user_agent"`
}

type ContactMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null"                 json:"name"`
	Email     string    `gorm:"not null"                 json:"email"`
	Subject   string    `gorm:"not null"                 json:"subject"`
	Message   string    `gorm:"not null"                 json:"message"`
	IsRead    bool      `gorm:"default:false"            json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type PasswordReset struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	Token     string    `gorm:"unique;not null"          json:"-"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
	Used      bool      `gorm:"default:false"            json:"used"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}
