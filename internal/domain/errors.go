package domain

import "errors"

var (
	// ErrInvalidNonce is returned when a login nonce is unknown, expired, or already redeemed.
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrInvalidSignature is returned when a wallet signature does not verify against the nonce message.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidToken is returned when an access or refresh token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserNotFound indicates a token carried a user id with no matching row.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuestionNotFound indicates a submitted question id does not belong to the active quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option id is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidAnswerPayload indicates a non-positive question or option id.
	ErrInvalidAnswerPayload = errors.New("invalid answer payload")
	// ErrAnswerExists indicates the user already answered this question (benign conflict).
	ErrAnswerExists = errors.New("answer already recorded")
	// ErrRewardExists indicates a reward was already issued for this quiz (benign conflict).
	ErrRewardExists = errors.New("reward already issued")
	// ErrRewardNotFound indicates there is no reward row to confirm.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrRewardAlreadySent indicates the reward confirmation was already processed.
	ErrRewardAlreadySent = errors.New("reward already sent")
)
