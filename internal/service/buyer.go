package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/digiinvoice/invoicing-backend/internal/model"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

// BuyerService manages a tenant's buyer directory.
type BuyerService struct{}

// NewBuyerService creates a BuyerService.
func NewBuyerService() *BuyerService {
	return &BuyerService{}
}

// BuyerInput is the buyer create/update payload.
type BuyerInput struct {
	BuyerNTNCNIC          string `json:"buyer_ntn_cnic"`
	BuyerBusinessName     string `json:"buyer_business_name"`
	BuyerProvince         string `json:"buyer_province"`
	BuyerAddress          string `json:"buyer_address"`
	BuyerRegistrationType string `json:"buyer_registration_type"`
}

func (in *BuyerInput) validate() error {
	if in.BuyerBusinessName == "" {
		return fmt.Errorf("%w: buyer business name is required", ErrValidation)
	}
	if in.BuyerProvince == "" {
		return fmt.Errorf("%w: buyer province is required", ErrValidation)
	}
	if in.BuyerRegistrationType == "" {
		return fmt.Errorf("%w: buyer registration type is required", ErrValidation)
	}
	return nil
}

// Create adds a buyer.
func (s *BuyerService) Create(ctx context.Context, h *tenantdb.Handle, in *BuyerInput) (*model.Buyer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	buyer := model.Buyer{
		NTNCNIC:          in.BuyerNTNCNIC,
		BusinessName:     in.BuyerBusinessName,
		Province:         in.BuyerProvince,
		Address:          in.BuyerAddress,
		RegistrationType: in.BuyerRegistrationType,
	}
	if err := h.DB().WithContext(ctx).Create(&buyer).Error; err != nil {
		return nil, err
	}
	return &buyer, nil
}

// ListBuyersParams controls buyer listing.
type ListBuyersParams struct {
	Page   int
	Limit  int
	Search string
}

// List returns a page of buyers, optionally matching name or tax id.
func (s *BuyerService) List(ctx context.Context, h *tenantdb.Handle, params ListBuyersParams) ([]model.Buyer, *Pagination, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	q := h.Buyers().WithContext(ctx)
	if params.Search != "" {
		like := "%" + params.Search + "%"
		q = q.Where("buyer_business_name LIKE ? OR buyer_ntn_cnic LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var buyers []model.Buyer
	err := q.Order("buyer_business_name ASC").
		Limit(params.Limit).
		Offset((params.Page - 1) * params.Limit).
		Find(&buyers).Error
	if err != nil {
		return nil, nil, err
	}

	return buyers, &Pagination{
		CurrentPage:  params.Page,
		TotalPages:   int(math.Ceil(float64(total) / float64(params.Limit))),
		TotalRecords: total,
		PerPage:      params.Limit,
	}, nil
}

// GetByID loads one buyer.
func (s *BuyerService) GetByID(ctx context.Context, h *tenantdb.Handle, id uint) (*model.Buyer, error) {
	var buyer model.Buyer
	err := h.DB().WithContext(ctx).First(&buyer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBuyerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &buyer, nil
}

// Update replaces a buyer's profile fields.
func (s *BuyerService) Update(ctx context.Context, h *tenantdb.Handle, id uint, in *BuyerInput) (*model.Buyer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	buyer, err := s.GetByID(ctx, h, id)
	if err != nil {
		return nil, err
	}
	err = h.DB().WithContext(ctx).Model(buyer).Updates(map[string]interface{}{
		"buyer_ntn_cnic":          in.BuyerNTNCNIC,
		"buyer_business_name":     in.BuyerBusinessName,
		"buyer_province":          in.BuyerProvince,
		"buyer_address":           in.BuyerAddress,
		"buyer_registration_type": in.BuyerRegistrationType,
	}).Error
	if err != nil {
		return nil, err
	}
	return buyer, nil
}

// Delete removes a buyer.
func (s *BuyerService) Delete(ctx context.Context, h *tenantdb.Handle, id uint) error {
	buyer, err := s.GetByID(ctx, h, id)
	if err != nil {
		return err
	}
	return h.DB().WithContext(ctx).Delete(buyer).Error
}
