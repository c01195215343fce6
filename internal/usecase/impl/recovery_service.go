package impl

import (
	"context"
	"log/slog"

	deliverycontext "portal/internal/delivery/context"
	"portal/internal/domain/service"
	"portal/internal/usecase"
)

// recoveryService implements the RecoveryUsecase interface. The flow is
// stateless on this side: the backend owns the OTP lifecycle.
type recoveryService struct {
	gateway service.AuthGateway
	logger  *slog.Logger
}

// NewRecoveryService is the constructor for recoveryService.
func NewRecoveryService(gateway service.AuthGateway, logger *slog.Logger) usecase.RecoveryUsecase {
	return &recoveryService{
		gateway: gateway,
		logger:  logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *recoveryService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *recoveryService) ForgotPassword(ctx context.Context, email string) error {
	if err := srv.gateway.ForgotPassword(ctx, email); err != nil {
		srv.log(ctx).Warn("Password recovery request failed", slog.Any("error", err))

		return err
	}

	srv.log(ctx).Info("Password recovery started", slog.String("email", email))

	return nil
}

func (srv *recoveryService) VerifyOTP(ctx context.Context, email, code string) error {
	if err := srv.gateway.VerifyOTP(ctx, email, code); err != nil {
		srv.log(ctx).Warn("OTP verification failed", slog.Any("error", err))

		return err
	}

	return nil
}

func (srv *recoveryService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	if err := srv.gateway.ResetPassword(ctx, input.Email, input.Code, input.Password); err != nil {
		srv.log(ctx).Warn("Password reset failed", slog.Any("error", err))

		return err
	}

	srv.log(ctx).Info("Password reset completed", slog.String("email", input.Email))

	return nil
}

func (srv *recoveryService) ResendOTP(ctx context.Context, email string) error {
	if err := srv.gateway.ResendOTP(ctx, email); err != nil {
		srv.log(ctx).Warn("OTP resend failed", slog.Any("error", err))

		return err
	}

	return nil
}
