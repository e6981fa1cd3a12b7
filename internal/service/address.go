package service

import (
	"context"
	"errors"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

var errAddressNotFound = &Error{Kind: KindNotFound, Code: "address_not_found", Message: "address does not exist in our records"}

// createOrFindAddress разрешает адрес платежа:
//   - адрес в запросе и сохранённый id: сохранённый адрес обновляется полями запроса
//   - только адрес в запросе: создаётся новый
//   - только сохранённый id: адрес читается
//   - ничего: адреса нет
func (c *PaymentConfirm) createOrFindAddress(ctx context.Context, req *AddressDetails, storedID, merchantID, customerID, paymentID string) (*repository.Address, error) {
	store := c.deps.Store

	switch {
	case req != nil && storedID != "":
		stored, err := store.FindAddress(ctx, merchantID, paymentID, storedID)
		if err != nil {
			return nil, addressLookupError(err)
		}
		updated, err := store.UpdateAddress(ctx, mergeAddress(stored, req))
		if err != nil {
			return nil, addressLookupError(err)
		}
		return &updated, nil

	case req != nil:
		addr := mergeAddress(repository.Address{
			AddressID:  c.deps.NewID("add"),
			MerchantID: merchantID,
			CustomerID: customerID,
			PaymentID:  paymentID,
		}, req)
		inserted, err := store.InsertAddress(ctx, addr)
		if err != nil {
			return nil, internalError("failed while inserting new address", err)
		}
		return &inserted, nil

	case storedID != "":
		stored, err := store.FindAddress(ctx, merchantID, paymentID, storedID)
		if err != nil {
			return nil, addressLookupError(err)
		}
		return &stored, nil
	}
	return nil, nil
}

func addressLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrapErr(errAddressNotFound, err)
	}
	return internalError("failed while resolving address", err)
}

// mergeAddress переносит непустые поля запроса на адрес
func mergeAddress(a repository.Address, req *AddressDetails) repository.Address {
	a.FirstName = orDefault(req.FirstName, a.FirstName)
	a.LastName = orDefault(req.LastName, a.LastName)
	a.Line1 = orDefault(req.Line1, a.Line1)
	a.Line2 = orDefault(req.Line2, a.Line2)
	a.Line3 = orDefault(req.Line3, a.Line3)
	a.City = orDefault(req.City, a.City)
	a.State = orDefault(req.State, a.State)
	a.Zip = orDefault(req.Zip, a.Zip)
	a.Country = orDefault(req.Country, a.Country)
	a.Phone = orDefault(req.Phone, a.Phone)
	a.CountryCode = orDefault(req.CountryCode, a.CountryCode)
	a.Email = orDefault(req.Email, a.Email)
	return a
}
