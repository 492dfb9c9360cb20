package model

import "time"

// CouponCompany identifies the sponsor that issued a coupon.
// The set is fixed for the campaign; Companies lists it in declaration
// order, which is also the tie-break order for weighted selection.
type CouponCompany string

const (
	CompanyNoon    CouponCompany = "Noon"
	CompanyTalabat CouponCompany = "Talabat"
	CompanyCareem  CouponCompany = "Careem"
	CompanyJahez   CouponCompany = "Jahez"
	CompanyAlDawaa CouponCompany = "AlDawaa"
	CompanyJoi     CouponCompany = "Joi"
)

// Companies is the ordered set of sponsor companies.
var Companies = []CouponCompany{
	CompanyNoon,
	CompanyTalabat,
	CompanyCareem,
	CompanyJahez,
	CompanyAlDawaa,
	CompanyJoi,
}

// Valid reports whether c is one of the known sponsor companies.
func (c CouponCompany) Valid() bool {
	for _, known := range Companies {
		if c == known {
			return true
		}
	}
	return false
}

// CouponType distinguishes percentage discounts from fixed-value ones.
type CouponType string

const (
	CouponTypePercentage CouponType = "Percentage"
	CouponTypeFixed      CouponType = "Fixed"
)

// DefaultCompanyWeights is the fairness weight table used by coupon
// allocation. Common sponsors carry weights of 4-5; the fixed-value niche
// sponsors are down-weighted so their small pools are not drained
// disproportionately fast. Overridable via COMPANY_WEIGHTS.
var DefaultCompanyWeights = map[CouponCompany]float64{
	CompanyNoon:    4.5,
	CompanyTalabat: 5,
	CompanyCareem:  4,
	CompanyJahez:   4,
	CompanyAlDawaa: 0.05,
	CompanyJoi:     0.05,
}

// Coupon is a single redeemable code issued by one sponsor company.
// Immutable once created; an assignment row marks it as used.
type Coupon struct {
	ID        int64         `json:"id"`
	Code      string        `json:"code"`
	Company   CouponCompany `json:"company"`
	Type      CouponType    `json:"type"`
	Value     string        `json:"value"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	CreatedAt time.Time     `json:"-"` // Not exposed in API
}

// Assignment binds one coupon to one user. A coupon appears in at most
// one assignment ever (UNIQUE on coupon_id).
type Assignment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CouponID  int64     `json:"coupon_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCouponRequest is the DTO for POST /api/coupons.
type CreateCouponRequest struct {
	Code      string `json:"code" validate:"required,notblank,max=255"`
	Company   string `json:"company" validate:"required,couponcompany"`
	Type      string `json:"type" validate:"required,oneof=Percentage Fixed"`
	Value     string `json:"value" validate:"required,notblank,max=255"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// AssignCouponRequest is the DTO for POST /api/coupons/assign.
type AssignCouponRequest struct {
	UserID *int64 `json:"user_id" validate:"required,gte=1"`
}
