package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// MemoryRepository реализует repository.Store используя in-memory хранилище
// Используется для разработки и тестирования (STORAGE_DRIVER=memory)
// Условные обновления проверяют Version так же, как PostgreSQL реализация
type MemoryRepository struct {
	mu        sync.RWMutex
	intents   map[string]repository.PaymentIntent  // merchantID/paymentID
	attempts  map[string]repository.PaymentAttempt // merchantID/paymentID/attemptID
	addresses map[string]repository.Address        // addressID
	customers map[string]repository.Customer       // merchantID/customerID
	mandates  map[string]repository.Mandate        // merchantID/mandateID
	links     map[string]repository.PaymentLink    // paymentLinkID
	configs   map[string]repository.Config         // key
	merchants map[string]repository.MerchantAccount
	now       func() time.Time
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		intents:   make(map[string]repository.PaymentIntent),
		attempts:  make(map[string]repository.PaymentAttempt),
		addresses: make(map[string]repository.Address),
		customers: make(map[string]repository.Customer),
		mandates:  make(map[string]repository.Mandate),
		links:     make(map[string]repository.PaymentLink),
		configs:   make(map[string]repository.Config),
		merchants: make(map[string]repository.MerchantAccount),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func key(parts ...string) string {
	k := ""
	for i, p := range parts {
		if i > 0 {
			k += "/"
		}
		k += p
	}
	return k
}

// SaveIntent кладёт intent как есть (создание intent вне confirm: сиды, тесты)
func (r *MemoryRepository) SaveIntent(intent repository.PaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[key(intent.MerchantID, intent.PaymentID)] = intent
}

// SaveAttempt кладёт attempt как есть
func (r *MemoryRepository) SaveAttempt(attempt repository.PaymentAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[key(attempt.MerchantID, attempt.PaymentID, attempt.AttemptID)] = attempt
}

// SaveMandate кладёт мандат
func (r *MemoryRepository) SaveMandate(m repository.Mandate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mandates[key(m.MerchantID, m.MandateID)] = m
}

// SavePaymentLink кладёт ссылку на оплату
func (r *MemoryRepository) SavePaymentLink(l repository.PaymentLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[l.PaymentLinkID] = l
}

// SaveMerchantAccount кладёт аккаунт мерчанта
func (r *MemoryRepository) SaveMerchantAccount(m repository.MerchantAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merchants[m.MerchantID] = m
}

// Addresses возвращает все адреса мерчанта, отсортированные по addressID
func (r *MemoryRepository) Addresses(merchantID string) []repository.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]repository.Address, 0)
	for _, a := range r.addresses {
		if a.MerchantID == merchantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddressID < out[j].AddressID })
	return out
}

// FindPaymentIntent получает intent по paymentID и merchantID
func (r *MemoryRepository) FindPaymentIntent(ctx context.Context, paymentID, merchantID string) (repository.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	intent, ok := r.intents[key(merchantID, paymentID)]
	if !ok {
		return repository.PaymentIntent{}, repository.ErrNotFound
	}
	return intent, nil
}

// UpdatePaymentIntent условно обновляет intent: version в памяти должна совпасть с intent.Version
func (r *MemoryRepository) UpdatePaymentIntent(ctx context.Context, intent repository.PaymentIntent, update repository.PaymentIntentUpdate, updatedBy string) (repository.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(intent.MerchantID, intent.PaymentID)
	stored, ok := r.intents[k]
	if !ok || stored.Version != intent.Version {
		return repository.PaymentIntent{}, repository.ErrNotFound
	}

	updated := update.ApplyTo(stored)
	updated.Version = stored.Version + 1
	updated.UpdatedBy = updatedBy
	updated.ModifiedAt = r.now()
	r.intents[k] = updated
	return updated, nil
}

// FindPaymentAttempt получает attempt
func (r *MemoryRepository) FindPaymentAttempt(ctx context.Context, paymentID, merchantID, attemptID string) (repository.PaymentAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attempt, ok := r.attempts[key(merchantID, paymentID, attemptID)]
	if !ok {
		return repository.PaymentAttempt{}, repository.ErrNotFound
	}
	return attempt, nil
}

// InsertPaymentAttempt сохраняет новый attempt
func (r *MemoryRepository) InsertPaymentAttempt(ctx context.Context, attempt repository.PaymentAttempt) (repository.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(attempt.MerchantID, attempt.PaymentID, attempt.AttemptID)
	if _, exists := r.attempts[k]; exists {
		return repository.PaymentAttempt{}, repository.ErrAlreadyExists
	}
	now := r.now()
	attempt.Version = 1
	attempt.CreatedAt = now
	attempt.ModifiedAt = now
	r.attempts[k] = attempt
	return attempt, nil
}

// UpdatePaymentAttempt условно обновляет attempt по version
func (r *MemoryRepository) UpdatePaymentAttempt(ctx context.Context, attempt repository.PaymentAttempt, update repository.PaymentAttemptUpdate, updatedBy string) (repository.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(attempt.MerchantID, attempt.PaymentID, attempt.AttemptID)
	stored, ok := r.attempts[k]
	if !ok || stored.Version != attempt.Version {
		return repository.PaymentAttempt{}, repository.ErrNotFound
	}

	updated := update.ApplyTo(stored)
	updated.Version = stored.Version + 1
	updated.UpdatedBy = updatedBy
	updated.ModifiedAt = r.now()
	r.attempts[k] = updated
	return updated, nil
}

// FindAddress получает адрес платежа
func (r *MemoryRepository) FindAddress(ctx context.Context, merchantID, paymentID, addressID string) (repository.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.addresses[addressID]
	if !ok || a.MerchantID != merchantID {
		return repository.Address{}, repository.ErrNotFound
	}
	return a, nil
}

// InsertAddress сохраняет новый адрес
func (r *MemoryRepository) InsertAddress(ctx context.Context, address repository.Address) (repository.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.addresses[address.AddressID]; exists {
		return repository.Address{}, repository.ErrAlreadyExists
	}
	now := r.now()
	address.CreatedAt = now
	address.ModifiedAt = now
	r.addresses[address.AddressID] = address
	return address, nil
}

// UpdateAddress перезаписывает поля существующего адреса
func (r *MemoryRepository) UpdateAddress(ctx context.Context, address repository.Address) (repository.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.addresses[address.AddressID]
	if !ok || stored.MerchantID != address.MerchantID {
		return repository.Address{}, repository.ErrNotFound
	}
	address.CreatedAt = stored.CreatedAt
	address.ModifiedAt = r.now()
	r.addresses[address.AddressID] = address
	return address, nil
}

// FindCustomer получает покупателя
func (r *MemoryRepository) FindCustomer(ctx context.Context, customerID, merchantID string) (repository.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[key(merchantID, customerID)]
	if !ok {
		return repository.Customer{}, repository.ErrNotFound
	}
	return c, nil
}

// InsertCustomer сохраняет нового покупателя
func (r *MemoryRepository) InsertCustomer(ctx context.Context, customer repository.Customer) (repository.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(customer.MerchantID, customer.CustomerID)
	if _, exists := r.customers[k]; exists {
		return repository.Customer{}, repository.ErrAlreadyExists
	}
	now := r.now()
	customer.CreatedAt = now
	customer.ModifiedAt = now
	r.customers[k] = customer
	return customer, nil
}

// UpdateCustomer применяет изменения к покупателю
func (r *MemoryRepository) UpdateCustomer(ctx context.Context, customerID, merchantID string, update repository.CustomerUpdate) (repository.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(merchantID, customerID)
	c, ok := r.customers[k]
	if !ok {
		return repository.Customer{}, repository.ErrNotFound
	}
	c = update.Apply(c)
	c.ModifiedAt = r.now()
	r.customers[k] = c
	return c, nil
}

// FindMandate получает мандат
func (r *MemoryRepository) FindMandate(ctx context.Context, merchantID, mandateID string) (repository.Mandate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mandates[key(merchantID, mandateID)]
	if !ok {
		return repository.Mandate{}, repository.ErrNotFound
	}
	return m, nil
}

// FindPaymentLink получает ссылку на оплату
func (r *MemoryRepository) FindPaymentLink(ctx context.Context, paymentLinkID string) (repository.PaymentLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.links[paymentLinkID]
	if !ok {
		return repository.PaymentLink{}, repository.ErrNotFound
	}
	return l, nil
}

// FindConfig получает запись конфигурации
func (r *MemoryRepository) FindConfig(ctx context.Context, k string) (repository.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.configs[k]
	if !ok {
		return repository.Config{}, repository.ErrNotFound
	}
	return c, nil
}

// InsertConfig сохраняет новую запись конфигурации
func (r *MemoryRepository) InsertConfig(ctx context.Context, cfg repository.Config) (repository.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[cfg.Key]; exists {
		return repository.Config{}, repository.ErrAlreadyExists
	}
	r.configs[cfg.Key] = cfg
	return cfg, nil
}

// UpdateConfig перезаписывает значение существующей записи
func (r *MemoryRepository) UpdateConfig(ctx context.Context, cfg repository.Config) (repository.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[cfg.Key]; !exists {
		return repository.Config{}, repository.ErrNotFound
	}
	r.configs[cfg.Key] = cfg
	return cfg, nil
}

// FindMerchantAccount получает аккаунт мерчанта
func (r *MemoryRepository) FindMerchantAccount(ctx context.Context, merchantID string) (repository.MerchantAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.merchants[merchantID]
	if !ok {
		return repository.MerchantAccount{}, repository.ErrNotFound
	}
	return m, nil
}
