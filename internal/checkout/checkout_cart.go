package checkout

import (
	"context"
	"errors"
	"fmt"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/cart"
	"go.uber.org/zap"
)

// AddProduct adds one unit of p, capped at its available quantity.
func (m *Machine) AddProduct(p d.Product) error {
	m.mu.Lock()
	if err := m.cartEditableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	fx := &effects{}
	if m.cart.Add(p) {
		m.cartChangedLocked()
		m.commitLocked(fx)
	} else {
		m.log.Debug("product not added, no stock left", zap.Int64("product_id", p.ProductID))
	}
	m.mu.Unlock()
	m.flush(fx)
	return nil
}

// AddBarcode resolves a scanned code through the backend and adds the product.
func (m *Machine) AddBarcode(ctx context.Context, barcode string) (*d.Product, error) {
	m.mu.Lock()
	err := m.cartEditableLocked()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := m.callContext(ctx)
	p, err := m.backend.LookupBarcode(callCtx, barcode)
	cancel()
	if err != nil {
		return nil, transient(fmt.Sprintf("lookup barcode %q", barcode), err)
	}
	if err := m.AddProduct(*p); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Machine) SetQuantity(productID int64, quantity int32) error {
	m.mu.Lock()
	if err := m.cartEditableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.cart.SetQuantity(productID, quantity); err != nil {
		m.mu.Unlock()
		switch {
		case errors.Is(err, cart.ErrExceedsAvailable):
			return fmt.Errorf("%w: product %d", ErrExceedsAvailable, productID)
		case errors.Is(err, cart.ErrItemNotFound):
			return fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
		default:
			return err
		}
	}
	fx := &effects{}
	m.cartChangedLocked()
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
	return nil
}

func (m *Machine) RemoveItem(productID int64) error {
	m.mu.Lock()
	if err := m.cartEditableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if !m.cart.Remove(productID) {
		m.mu.Unlock()
		return fmt.Errorf("%w: product %d", ErrItemNotFound, productID)
	}
	fx := &effects{}
	m.cartChangedLocked()
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
	return nil
}

func (m *Machine) ClearCart() error {
	m.mu.Lock()
	if err := m.cartEditableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	fx := &effects{}
	m.cart.Clear()
	m.cartChangedLocked()
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
	return nil
}

// cartEditableLocked rejects edits once the items were handed to the backend.
func (m *Machine) cartEditableLocked() error {
	if m.session.Transaction != nil || m.session.Screen.TransactionActive() || m.pending != "" {
		return ErrCartLocked
	}
	return nil
}

// cartChangedLocked invalidates a previously chosen tip; it has to be chosen again.
func (m *Machine) cartChangedLocked() {
	if !m.session.TipChosen {
		return
	}
	m.log.Info("cart changed after tip selection, tip cleared")
	m.session.TipChosen = false
	m.session.Tip = d.NoTip()
}
