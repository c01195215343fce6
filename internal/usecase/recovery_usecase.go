package usecase

import "context"

// ResetPasswordInput carries the final step of the OTP recovery flow.
type ResetPasswordInput struct {
	Email    string
	Code     string
	Password string
}

// RecoveryUsecase drives the OTP-based password recovery flow. None of its
// operations require or establish a session.
type RecoveryUsecase interface {
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
	ResendOTP(ctx context.Context, email string) error
}
