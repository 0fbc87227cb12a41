package backend

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type PageMeta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	CostPrice   float64   `json:"costPrice"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateProduct struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price" validate:"gte=0"`
	CostPrice   float64 `json:"costPrice" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Category    string  `json:"category" validate:"required"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// UpdateProduct는 부분 수정. nil 필드는 보내지 않는다.
type UpdateProduct struct {
	Name        *string  `json:"name,omitempty" validate:"omitnil,min=1"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitnil,gte=0"`
	CostPrice   *float64 `json:"costPrice,omitempty" validate:"omitnil,gte=0"`
	Stock       *int     `json:"stock,omitempty" validate:"omitnil,gte=0"`
	Category    *string  `json:"category,omitempty" validate:"omitnil,min=1"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
}

type ProductFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	Page     int
	Limit    int
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type OrderUser struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type OrderProduct struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL *string `json:"imageUrl"`
}

type OrderItem struct {
	ID        string       `json:"id"`
	ProductID string       `json:"productId"`
	Product   OrderProduct `json:"product"`
	Quantity  int          `json:"quantity"`
	Price     float64      `json:"price"`
}

type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	User        OrderUser   `json:"user"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type OrderFilter struct {
	Status OrderStatus
	Page   int
	Limit  int
}

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func (p Period) Valid() bool {
	return p == PeriodWeek || p == PeriodMonth || p == PeriodYear
}

type DashboardStats struct {
	TotalProducts int `json:"totalProducts"`
	ActiveOrders  int `json:"activeOrders"`
	TotalUsers    int `json:"totalUsers"`
	Revenue       struct {
		Total  float64 `json:"total"`
		Profit float64 `json:"profit"`
		Period string  `json:"period"`
	} `json:"revenue"`
	CompletedOrdersCount int `json:"completedOrdersCount"`
}

type RevenueStats struct {
	Period       Period  `json:"period"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	OrdersCount  int     `json:"ordersCount"`
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profitMargin"`
}

type UploadedImage struct {
	ImageURL string `json:"imageUrl"`
	Filename string `json:"filename"`
}
