package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
	"github.com/shestoi/GoBigTech/services/payment/platform/observability"
)

const tracerName = "payment"

// Service точка входа бизнес-логики платежей
// Операция выбирается по виду в реестре, фазы выполняются по порядку,
// каждая получает агрегат, обновлённый предыдущей
type Service struct {
	ops    registry
	deps   Deps
	fraud  FraudChecker
	logger *zap.Logger

	confirmCounter  metric.Int64Counter
	confirmDuration metric.Float64Histogram
}

// NewService создаёт сервис; fraud nil означает отключённую фрод-проверку
func NewService(deps Deps, fraud FraudChecker) *Service {
	deps = deps.withDefaults()
	if fraud == nil {
		fraud = NoopFraudChecker{}
	}

	meter := otel.Meter(tracerName)
	counter, err := meter.Int64Counter("payment_confirm_total",
		metric.WithDescription("confirm calls by outcome"))
	if err != nil {
		deps.Logger.Warn("failed to create confirm counter", zap.Error(err))
	}
	duration, err := meter.Float64Histogram("payment_confirm_duration_seconds",
		metric.WithDescription("confirm pipeline duration"),
		metric.WithUnit("s"))
	if err != nil {
		deps.Logger.Warn("failed to create confirm histogram", zap.Error(err))
	}

	return &Service{
		ops:             newRegistry(deps),
		deps:            deps,
		fraud:           fraud,
		logger:          deps.Logger,
		confirmCounter:  counter,
		confirmDuration: duration,
	}
}

// Merchant загружает аккаунт мерчанта для аутентифицированного вызова
func (s *Service) Merchant(ctx context.Context, merchantID string) (repository.MerchantAccount, error) {
	merchant, err := s.deps.Store.FindMerchantAccount(ctx, merchantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.MerchantAccount{}, wrapErr(ErrMerchantNotFound, err)
		}
		return repository.MerchantAccount{}, internalError("failed to find merchant account", err)
	}
	return merchant, nil
}

// Confirm выполняет конвейер confirm и возвращает снимок статусов
func (s *Service) Confirm(ctx context.Context, merchant repository.MerchantAccount, req *PaymentsRequest, header HeaderPayload) (*ConfirmResponse, error) {
	started := time.Now()
	resp, err := s.confirm(ctx, merchant, req, header)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if s.confirmCounter != nil {
		s.confirmCounter.Add(ctx, 1, attrs)
	}
	if s.confirmDuration != nil {
		s.confirmDuration.Record(ctx, time.Since(started).Seconds(), attrs)
	}

	logger := observability.L(ctx, s.logger).With(zap.String("merchant_id", merchant.MerchantID))
	if err != nil {
		if KindOf(err) == KindInternal {
			logger.Error("confirm failed", zap.String("payment_id", req.PaymentID), zap.Error(err))
		} else {
			logger.Info("confirm rejected", zap.String("payment_id", req.PaymentID), zap.Error(err))
		}
		return nil, err
	}
	logger.Info("confirm completed",
		zap.String("payment_id", resp.PaymentID),
		zap.String("attempt_id", resp.AttemptID),
		zap.String("status", string(resp.Status)),
	)
	return resp, nil
}

func (s *Service) confirm(ctx context.Context, merchant repository.MerchantAccount, req *PaymentsRequest, header HeaderPayload) (*ConfirmResponse, error) {
	op, ok := s.ops[OperationConfirm]
	if !ok {
		return nil, internalError("confirm operation is not registered", nil)
	}
	if header.AuthFlow == "" {
		header.AuthFlow = AuthFlowMerchant
	}

	var (
		vr             ValidateResult
		pd             *PaymentData
		details        *CustomerDetails
		customer       *repository.Customer
		customerUpdate *repository.CustomerUpdate
		fraud          *FraudCheckResult
	)

	phases := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"confirm.validate_request", func(ctx context.Context) error {
			var err error
			vr, err = op.ValidateRequest(req, merchant)
			return err
		}},
		{"confirm.get_trackers", func(ctx context.Context) error {
			var err error
			pd, details, err = op.GetTrackers(ctx, vr.PaymentID, req, vr.MandateType, merchant, header.AuthFlow)
			return err
		}},
		{"confirm.customer", func(ctx context.Context) error {
			var err error
			customer, customerUpdate, err = op.GetOrCreateCustomerDetails(ctx, pd, details, merchant.MerchantID)
			return err
		}},
		{"confirm.payment_method_data", func(ctx context.Context) error {
			_, err := op.MakePmData(ctx, pd)
			return err
		}},
		{"confirm.connector", func(ctx context.Context) error {
			_, err := op.GetConnector(ctx, merchant, req, pd)
			return err
		}},
		{"confirm.fraud_check", func(ctx context.Context) error {
			fraud = s.preCheck(ctx, pd)
			return nil
		}},
		{"confirm.update_trackers", func(ctx context.Context) error {
			var err error
			pd, err = op.UpdateTrackers(ctx, pd, customer, customerUpdate, merchant, fraud, header)
			return err
		}},
		{"confirm.process_tracker", func(ctx context.Context) error {
			return op.AddTaskToProcessTracker(ctx, pd.Attempt, vr.Requeue)
		}},
	}

	for _, phase := range phases {
		err := observability.InSpan(ctx, tracerName, phase.name, phase.run,
			attribute.String("merchant_id", merchant.MerchantID),
		)
		if err != nil {
			return nil, err
		}
	}

	return newConfirmResponse(pd), nil
}

// preCheck ошибка фрод-проверки не останавливает платёж
func (s *Service) preCheck(ctx context.Context, pd *PaymentData) *FraudCheckResult {
	res, err := s.fraud.PreCheck(ctx, pd)
	if err != nil {
		observability.L(ctx, s.logger).Warn("fraud pre-check failed, continuing without suggestion",
			zap.String("payment_id", pd.Intent.PaymentID),
			zap.Error(err),
		)
		return nil
	}
	if res.Suggestion == FraudNone {
		return nil
	}
	return &res
}
