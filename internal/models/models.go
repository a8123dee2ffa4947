package models

type Product struct {
	ID       uint    `gorm:"primaryKey;autoIncrement"            json:"id"`
	Name     string  `gorm:"not null"                            json:"name"`
	Price    float64 `gorm:"not null"                            json:"price"`
	Category string  `json:"category"`
	Stock    int     `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"-"`
	JTI       string `gorm:"index"           json:"jti"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `gorm:"not null"        json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// One line per (user, product); repeated adds grow Quantity instead of
// inserting a second row.
type CartItem struct {
	ID        uint `gorm:"primaryKey"                             json:"id"`
	UserID    uint `gorm:"uniqueIndex:idx_user_product;not null"  json:"user_id"`
	ProductID uint `gorm:"uniqueIndex:idx_user_product;not null"  json:"product_id"`
	Quantity  uint `gorm:"not null;check:quantity > 0"            json:"quantity"`
}

type Order struct {
	ID         uint    `gorm:"primaryKey"     json:"id"`
	UserID     uint    `gorm:"index;not null" json:"user_id"`
	TotalPrice float64 `gorm:"not null"       json:"total_price"`
	Status     string  `gorm:"not null"       json:"status"`
	CreatedAt  int64   `gorm:"not null"       json:"created_at"`
}

// UnitPrice is the product price at checkout time; later catalog price
// changes do not touch recorded orders.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey"                  json:"id"`
	OrderID   uint    `gorm:"index;not null"              json:"order_id"`
	ProductID uint    `gorm:"not null"                    json:"product_id"`
	Quantity  uint    `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice float64 `gorm:"not null"                    json:"unit_price"`
}
