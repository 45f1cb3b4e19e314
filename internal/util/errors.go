package util

import "errors"

var (
	ErrStudentNotFound      = errors.New("student not found")
	ErrEmailRegistered      = errors.New("该邮箱已被注册")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrTestNotFound         = errors.New("test not found")
	ErrTestNotPublished     = errors.New("test not published or not accessible")
	ErrTestHasNoQuestions   = errors.New("test has no questions")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptAlreadyGraded = errors.New("attempt already graded")
	ErrAttemptNotGradable   = errors.New("attempt is not in progress")
	ErrInvalidSubmission    = errors.New("invalid submission payload")
	ErrAttemptAccessDenied  = errors.New("attempt belongs to another student")
)
