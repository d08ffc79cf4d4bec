package contract

import (
	"time"

	"github.com/hitoshi/cardeal/internal/model"
)

// Patch は契約の部分更新を表す。nilフィールドは変更しない。
type Patch struct {
	Status   *string
	Date     *time.Time
	City     *string
	SellerID *int64
	BuyerID  *int64
	CarID    *int64
	Price    *string
}

// apply はPatchの非nilフィールドを契約に反映する。
func (p *Patch) apply(c *model.Contract) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Date != nil {
		c.Date = *p.Date
	}
	if p.City != nil {
		c.City = *p.City
	}
	if p.SellerID != nil {
		c.SellerID = *p.SellerID
	}
	if p.BuyerID != nil {
		c.BuyerID = *p.BuyerID
	}
	if p.CarID != nil {
		c.CarID = *p.CarID
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
}
