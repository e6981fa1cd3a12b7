package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// Repository реализует repository.Store используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// rowScanner общий интерфейс pgx.Row и pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const intentColumns = `payment_id, merchant_id, status, amount, currency, amount_captured, customer_id,
	description, return_url, metadata, connector_metadata, feature_metadata, allowed_payment_method_types,
	order_details, shipping_address_id, billing_address_id, statement_descriptor_name,
	statement_descriptor_suffix, setup_future_usage, off_session, client_secret, active_attempt_id,
	attempt_count, business_country, business_label, payment_link_id, payment_confirm_source,
	updated_by, version, created_at, modified_at`

func scanIntent(row rowScanner) (repository.PaymentIntent, error) {
	var (
		i                                     repository.PaymentIntent
		status                                string
		metadata, connMeta, featMeta, allowed []byte
		orderDetails                          []byte
	)
	err := row.Scan(&i.PaymentID, &i.MerchantID, &status, &i.Amount, &i.Currency, &i.AmountCaptured,
		&i.CustomerID, &i.Description, &i.ReturnURL, &metadata, &connMeta, &featMeta, &allowed,
		&orderDetails, &i.ShippingAddressID, &i.BillingAddressID, &i.StatementDescriptorName,
		&i.StatementDescriptorSuffix, &i.SetupFutureUsage, &i.OffSession, &i.ClientSecret,
		&i.ActiveAttemptID, &i.AttemptCount, &i.BusinessCountry, &i.BusinessLabel, &i.PaymentLinkID,
		&i.PaymentConfirmSource, &i.UpdatedBy, &i.Version, &i.CreatedAt, &i.ModifiedAt)
	if err != nil {
		return repository.PaymentIntent{}, err
	}

	i.Status = repository.IntentStatus(status)
	i.Metadata = rawJSON(metadata)
	i.ConnectorMetadata = rawJSON(connMeta)
	i.FeatureMetadata = rawJSON(featMeta)
	i.AllowedPaymentMethodTypes = rawJSON(allowed)
	if len(orderDetails) > 0 {
		if err := json.Unmarshal(orderDetails, &i.OrderDetails); err != nil {
			return repository.PaymentIntent{}, fmt.Errorf("decode order_details: %w", err)
		}
	}
	return i, nil
}

const attemptColumns = `attempt_id, payment_id, merchant_id, status, amount, currency, surcharge_amount,
	tax_amount, payment_method, payment_method_type, payment_experience, capture_method,
	authentication_type, connector, merchant_connector_id, browser_info, payment_token,
	payment_method_data, mandate_id, mandate_details, business_sub_label, straight_through_algorithm,
	error_code, error_message, amount_capturable, updated_by, version, created_at, modified_at`

func scanAttempt(row rowScanner) (repository.PaymentAttempt, error) {
	var (
		a                                   repository.PaymentAttempt
		status                              string
		browserInfo, pmData, mandateDetails []byte
		algorithm                           []byte
	)
	err := row.Scan(&a.AttemptID, &a.PaymentID, &a.MerchantID, &status, &a.Amount, &a.Currency,
		&a.SurchargeAmount, &a.TaxAmount, &a.PaymentMethod, &a.PaymentMethodType, &a.PaymentExperience,
		&a.CaptureMethod, &a.AuthenticationType, &a.Connector, &a.MerchantConnectorID, &browserInfo,
		&a.PaymentToken, &pmData, &a.MandateID, &mandateDetails, &a.BusinessSubLabel, &algorithm,
		&a.ErrorCode, &a.ErrorMessage, &a.AmountCapturable, &a.UpdatedBy, &a.Version, &a.CreatedAt,
		&a.ModifiedAt)
	if err != nil {
		return repository.PaymentAttempt{}, err
	}

	a.Status = repository.AttemptStatus(status)
	a.BrowserInfo = rawJSON(browserInfo)
	a.PaymentMethodData = rawJSON(pmData)
	a.MandateDetails = rawJSON(mandateDetails)
	a.StraightThroughAlgorithm = rawJSON(algorithm)
	return a, nil
}

// FindPaymentIntent получает intent по paymentID и merchantID
func (r *Repository) FindPaymentIntent(ctx context.Context, paymentID, merchantID string) (repository.PaymentIntent, error) {
	intent, err := scanIntent(r.pool.QueryRow(ctx,
		`SELECT `+intentColumns+`
		 FROM payment_intent
		 WHERE merchant_id = $1 AND payment_id = $2`,
		merchantID, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.PaymentIntent{}, repository.ErrNotFound
		}
		return repository.PaymentIntent{}, err
	}
	return intent, nil
}

// UpdatePaymentIntent условно обновляет intent
// Строка блокируется только если version совпадает с intent.Version, иначе ErrNotFound
func (r *Repository) UpdatePaymentIntent(ctx context.Context, intent repository.PaymentIntent, update repository.PaymentIntentUpdate, updatedBy string) (repository.PaymentIntent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return repository.PaymentIntent{}, err
	}
	defer tx.Rollback(ctx)

	stored, err := scanIntent(tx.QueryRow(ctx,
		`SELECT `+intentColumns+`
		 FROM payment_intent
		 WHERE merchant_id = $1 AND payment_id = $2 AND version = $3
		 FOR UPDATE`,
		intent.MerchantID, intent.PaymentID, intent.Version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.PaymentIntent{}, repository.ErrNotFound
		}
		return repository.PaymentIntent{}, err
	}

	u := update.ApplyTo(stored)
	orderDetails, err := orderDetailsArg(u.OrderDetails)
	if err != nil {
		return repository.PaymentIntent{}, err
	}

	updated, err := scanIntent(tx.QueryRow(ctx,
		`UPDATE payment_intent SET
		   status = $3, amount = $4, currency = $5, customer_id = $6, description = $7,
		   return_url = $8, metadata = $9, order_details = $10, shipping_address_id = $11,
		   billing_address_id = $12, statement_descriptor_name = $13, statement_descriptor_suffix = $14,
		   setup_future_usage = $15, active_attempt_id = $16, attempt_count = $17,
		   business_country = $18, business_label = $19, payment_confirm_source = $20,
		   updated_by = $21, version = version + 1, modified_at = now()
		 WHERE merchant_id = $1 AND payment_id = $2
		 RETURNING `+intentColumns,
		u.MerchantID, u.PaymentID, string(u.Status), u.Amount, u.Currency, u.CustomerID, u.Description,
		u.ReturnURL, jsonArg(u.Metadata), orderDetails, u.ShippingAddressID, u.BillingAddressID,
		u.StatementDescriptorName, u.StatementDescriptorSuffix, u.SetupFutureUsage, u.ActiveAttemptID,
		u.AttemptCount, u.BusinessCountry, u.BusinessLabel, u.PaymentConfirmSource, updatedBy))
	if err != nil {
		return repository.PaymentIntent{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return repository.PaymentIntent{}, err
	}
	return updated, nil
}

// FindPaymentAttempt получает attempt
func (r *Repository) FindPaymentAttempt(ctx context.Context, paymentID, merchantID, attemptID string) (repository.PaymentAttempt, error) {
	attempt, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM payment_attempt
		 WHERE merchant_id = $1 AND payment_id = $2 AND attempt_id = $3`,
		merchantID, paymentID, attemptID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.PaymentAttempt{}, repository.ErrNotFound
		}
		return repository.PaymentAttempt{}, err
	}
	return attempt, nil
}

// InsertPaymentAttempt сохраняет новый attempt, version начинается с 1
func (r *Repository) InsertPaymentAttempt(ctx context.Context, a repository.PaymentAttempt) (repository.PaymentAttempt, error) {
	inserted, err := scanAttempt(r.pool.QueryRow(ctx,
		`INSERT INTO payment_attempt (attempt_id, payment_id, merchant_id, status, amount, currency,
		   surcharge_amount, tax_amount, payment_method, payment_method_type, payment_experience,
		   capture_method, authentication_type, connector, merchant_connector_id, browser_info,
		   payment_token, payment_method_data, mandate_id, mandate_details, business_sub_label,
		   straight_through_algorithm, error_code, error_message, amount_capturable, updated_by, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		   $20, $21, $22, $23, $24, $25, $26, 1)
		 RETURNING `+attemptColumns,
		a.AttemptID, a.PaymentID, a.MerchantID, string(a.Status), a.Amount, a.Currency,
		a.SurchargeAmount, a.TaxAmount, a.PaymentMethod, a.PaymentMethodType, a.PaymentExperience,
		a.CaptureMethod, a.AuthenticationType, a.Connector, a.MerchantConnectorID, jsonArg(a.BrowserInfo),
		a.PaymentToken, jsonArg(a.PaymentMethodData), a.MandateID, jsonArg(a.MandateDetails),
		a.BusinessSubLabel, jsonArg(a.StraightThroughAlgorithm), a.ErrorCode, a.ErrorMessage,
		a.AmountCapturable, a.UpdatedBy))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.PaymentAttempt{}, repository.ErrAlreadyExists
		}
		return repository.PaymentAttempt{}, err
	}
	return inserted, nil
}

// UpdatePaymentAttempt условно обновляет attempt по version
func (r *Repository) UpdatePaymentAttempt(ctx context.Context, attempt repository.PaymentAttempt, update repository.PaymentAttemptUpdate, updatedBy string) (repository.PaymentAttempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return repository.PaymentAttempt{}, err
	}
	defer tx.Rollback(ctx)

	stored, err := scanAttempt(tx.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM payment_attempt
		 WHERE merchant_id = $1 AND payment_id = $2 AND attempt_id = $3 AND version = $4
		 FOR UPDATE`,
		attempt.MerchantID, attempt.PaymentID, attempt.AttemptID, attempt.Version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.PaymentAttempt{}, repository.ErrNotFound
		}
		return repository.PaymentAttempt{}, err
	}

	u := update.ApplyTo(stored)
	updated, err := scanAttempt(tx.QueryRow(ctx,
		`UPDATE payment_attempt SET
		   status = $4, amount = $5, currency = $6, surcharge_amount = $7, tax_amount = $8,
		   payment_method = $9, payment_method_type = $10, payment_experience = $11,
		   authentication_type = $12, connector = $13, merchant_connector_id = $14, browser_info = $15,
		   payment_token = $16, payment_method_data = $17, business_sub_label = $18,
		   straight_through_algorithm = $19, error_code = $20, error_message = $21,
		   amount_capturable = $22, updated_by = $23, version = version + 1, modified_at = now()
		 WHERE merchant_id = $1 AND payment_id = $2 AND attempt_id = $3
		 RETURNING `+attemptColumns,
		u.MerchantID, u.PaymentID, u.AttemptID, string(u.Status), u.Amount, u.Currency,
		u.SurchargeAmount, u.TaxAmount, u.PaymentMethod, u.PaymentMethodType, u.PaymentExperience,
		u.AuthenticationType, u.Connector, u.MerchantConnectorID, jsonArg(u.BrowserInfo), u.PaymentToken,
		jsonArg(u.PaymentMethodData), u.BusinessSubLabel, jsonArg(u.StraightThroughAlgorithm),
		u.ErrorCode, u.ErrorMessage, u.AmountCapturable, updatedBy))
	if err != nil {
		return repository.PaymentAttempt{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return repository.PaymentAttempt{}, err
	}
	return updated, nil
}

const addressColumns = `address_id, merchant_id, customer_id, payment_id, first_name, last_name,
	line1, line2, line3, city, state, zip, country, phone, country_code, email, created_at, modified_at`

func scanAddress(row rowScanner) (repository.Address, error) {
	var a repository.Address
	err := row.Scan(&a.AddressID, &a.MerchantID, &a.CustomerID, &a.PaymentID, &a.FirstName, &a.LastName,
		&a.Line1, &a.Line2, &a.Line3, &a.City, &a.State, &a.Zip, &a.Country, &a.Phone, &a.CountryCode,
		&a.Email, &a.CreatedAt, &a.ModifiedAt)
	return a, err
}

// FindAddress получает адрес по id в рамках мерчанта
func (r *Repository) FindAddress(ctx context.Context, merchantID, paymentID, addressID string) (repository.Address, error) {
	a, err := scanAddress(r.pool.QueryRow(ctx,
		`SELECT `+addressColumns+`
		 FROM address
		 WHERE merchant_id = $1 AND address_id = $2`,
		merchantID, addressID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Address{}, repository.ErrNotFound
		}
		return repository.Address{}, err
	}
	return a, nil
}

// InsertAddress сохраняет новый адрес
func (r *Repository) InsertAddress(ctx context.Context, a repository.Address) (repository.Address, error) {
	inserted, err := scanAddress(r.pool.QueryRow(ctx,
		`INSERT INTO address (address_id, merchant_id, customer_id, payment_id, first_name, last_name,
		   line1, line2, line3, city, state, zip, country, phone, country_code, email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING `+addressColumns,
		a.AddressID, a.MerchantID, a.CustomerID, a.PaymentID, a.FirstName, a.LastName, a.Line1, a.Line2,
		a.Line3, a.City, a.State, a.Zip, a.Country, a.Phone, a.CountryCode, a.Email))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.Address{}, repository.ErrAlreadyExists
		}
		return repository.Address{}, err
	}
	return inserted, nil
}

// UpdateAddress перезаписывает поля существующего адреса
func (r *Repository) UpdateAddress(ctx context.Context, a repository.Address) (repository.Address, error) {
	updated, err := scanAddress(r.pool.QueryRow(ctx,
		`UPDATE address SET
		   customer_id = $3, payment_id = $4, first_name = $5, last_name = $6, line1 = $7, line2 = $8,
		   line3 = $9, city = $10, state = $11, zip = $12, country = $13, phone = $14,
		   country_code = $15, email = $16, modified_at = now()
		 WHERE merchant_id = $1 AND address_id = $2
		 RETURNING `+addressColumns,
		a.MerchantID, a.AddressID, a.CustomerID, a.PaymentID, a.FirstName, a.LastName, a.Line1, a.Line2,
		a.Line3, a.City, a.State, a.Zip, a.Country, a.Phone, a.CountryCode, a.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Address{}, repository.ErrNotFound
		}
		return repository.Address{}, err
	}
	return updated, nil
}

const customerColumns = `customer_id, merchant_id, name, email, phone, phone_country_code, description,
	metadata, created_at, modified_at`

func scanCustomer(row rowScanner) (repository.Customer, error) {
	var (
		c        repository.Customer
		metadata []byte
	)
	err := row.Scan(&c.CustomerID, &c.MerchantID, &c.Name, &c.Email, &c.Phone, &c.PhoneCountryCode,
		&c.Description, &metadata, &c.CreatedAt, &c.ModifiedAt)
	c.Metadata = rawJSON(metadata)
	return c, err
}

// FindCustomer получает покупателя
func (r *Repository) FindCustomer(ctx context.Context, customerID, merchantID string) (repository.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+`
		 FROM customers
		 WHERE merchant_id = $1 AND customer_id = $2`,
		merchantID, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Customer{}, repository.ErrNotFound
		}
		return repository.Customer{}, err
	}
	return c, nil
}

// InsertCustomer сохраняет нового покупателя
func (r *Repository) InsertCustomer(ctx context.Context, c repository.Customer) (repository.Customer, error) {
	inserted, err := scanCustomer(r.pool.QueryRow(ctx,
		`INSERT INTO customers (customer_id, merchant_id, name, email, phone, phone_country_code,
		   description, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+customerColumns,
		c.CustomerID, c.MerchantID, c.Name, c.Email, c.Phone, c.PhoneCountryCode, c.Description,
		jsonArg(c.Metadata)))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.Customer{}, repository.ErrAlreadyExists
		}
		return repository.Customer{}, err
	}
	return inserted, nil
}

// UpdateCustomer применяет только заданные поля (COALESCE оставляет текущее значение для NULL)
func (r *Repository) UpdateCustomer(ctx context.Context, customerID, merchantID string, update repository.CustomerUpdate) (repository.Customer, error) {
	updated, err := scanCustomer(r.pool.QueryRow(ctx,
		`UPDATE customers SET
		   name = COALESCE($3, name),
		   email = COALESCE($4, email),
		   phone = COALESCE($5, phone),
		   phone_country_code = COALESCE($6, phone_country_code),
		   modified_at = now()
		 WHERE merchant_id = $1 AND customer_id = $2
		 RETURNING `+customerColumns,
		merchantID, customerID, update.Name, update.Email, update.Phone, update.PhoneCountryCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Customer{}, repository.ErrNotFound
		}
		return repository.Customer{}, err
	}
	return updated, nil
}

// FindMandate получает мандат
func (r *Repository) FindMandate(ctx context.Context, merchantID, mandateID string) (repository.Mandate, error) {
	var (
		m      repository.Mandate
		status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT mandate_id, merchant_id, customer_id, payment_method_id, payment_method,
		   payment_method_type, status, mandate_type, connector, merchant_connector_id,
		   connector_mandate_id, created_at
		 FROM mandate
		 WHERE merchant_id = $1 AND mandate_id = $2`,
		merchantID, mandateID).Scan(&m.MandateID, &m.MerchantID, &m.CustomerID, &m.PaymentMethodID,
		&m.PaymentMethod, &m.PaymentMethodType, &status, &m.MandateType, &m.Connector,
		&m.MerchantConnectorID, &m.ConnectorMandateID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Mandate{}, repository.ErrNotFound
		}
		return repository.Mandate{}, err
	}
	m.Status = repository.MandateStatus(status)
	return m, nil
}

// FindPaymentLink получает ссылку на оплату
func (r *Repository) FindPaymentLink(ctx context.Context, paymentLinkID string) (repository.PaymentLink, error) {
	var l repository.PaymentLink
	err := r.pool.QueryRow(ctx,
		`SELECT payment_link_id, payment_id, merchant_id, link_to_pay, amount, currency,
		   fulfilment_time, custom_merchant_name, created_at
		 FROM payment_link
		 WHERE payment_link_id = $1`,
		paymentLinkID).Scan(&l.PaymentLinkID, &l.PaymentID, &l.MerchantID, &l.LinkToPay, &l.Amount,
		&l.Currency, &l.FulfilmentTime, &l.CustomMerchantName, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.PaymentLink{}, repository.ErrNotFound
		}
		return repository.PaymentLink{}, err
	}
	return l, nil
}

// FindConfig получает запись конфигурации
func (r *Repository) FindConfig(ctx context.Context, key string) (repository.Config, error) {
	var c repository.Config
	err := r.pool.QueryRow(ctx,
		`SELECT key, value FROM configs WHERE key = $1`, key).Scan(&c.Key, &c.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Config{}, repository.ErrNotFound
		}
		return repository.Config{}, err
	}
	return c, nil
}

// InsertConfig сохраняет новую запись конфигурации
func (r *Repository) InsertConfig(ctx context.Context, cfg repository.Config) (repository.Config, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO configs (key, value) VALUES ($1, $2)`, cfg.Key, cfg.Value)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.Config{}, repository.ErrAlreadyExists
		}
		return repository.Config{}, err
	}
	return cfg, nil
}

// UpdateConfig перезаписывает значение существующей записи
func (r *Repository) UpdateConfig(ctx context.Context, cfg repository.Config) (repository.Config, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE configs SET value = $2 WHERE key = $1`, cfg.Key, cfg.Value)
	if err != nil {
		return repository.Config{}, err
	}
	if tag.RowsAffected() == 0 {
		return repository.Config{}, repository.ErrNotFound
	}
	return cfg, nil
}

// FindMerchantAccount получает аккаунт мерчанта
func (r *Repository) FindMerchantAccount(ctx context.Context, merchantID string) (repository.MerchantAccount, error) {
	var (
		m           repository.MerchantAccount
		fulfillment int64
		linkConfig  []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT merchant_id, merchant_name, return_url, publishable_key, storage_scheme,
		   intent_fulfillment_time, payment_link_config
		 FROM merchant_account
		 WHERE merchant_id = $1`,
		merchantID).Scan(&m.MerchantID, &m.MerchantName, &m.ReturnURL, &m.PublishableKey,
		&m.StorageScheme, &fulfillment, &linkConfig)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.MerchantAccount{}, repository.ErrNotFound
		}
		return repository.MerchantAccount{}, err
	}
	m.IntentFulfillmentTime = time.Duration(fulfillment) * time.Second
	m.PaymentLinkConfig = rawJSON(linkConfig)
	return m, nil
}

// isUniqueViolation проверяет, это duplicate key error?
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// jsonArg передаёт JSON в jsonb колонку; пустое значение пишется как NULL
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func orderDetailsArg(details []json.RawMessage) (any, error) {
	if details == nil {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode order_details: %w", err)
	}
	return string(b), nil
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
