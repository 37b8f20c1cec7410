package core

// error_messages.go maps errors to messages an operator can act on. Each
// message carries a code to quote to support:
//
//	IMP001  unsupported file format
//	IMP002  no valid records found in the file
//	IMP003  file could not be decoded
//	IMP004  too many imports in progress
//	IMP005  file too large
//	STO001  record store rejected or failed the call
//	STO002  record not found
//	AUTH001 operator not authenticated
//	VAL001  required field is empty / invalid input
//	VAL002  unknown stage
//	VAL003  unknown interaction kind
//	VAL004  drag gesture out of order
//	DB001-DB006 database conditions recognized from the driver message
//	REQ001-REQ002 request cancelled or timed out
//	ERR000  anything else; check the logs for the technical error
//
// Known error kinds are matched with errors.Is first. Driver errors that
// reach here only as text fall back to case-insensitive substring patterns;
// the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UserMessage is what the operator sees for a failed operation.
type UserMessage struct {
	Message string `json:"message"` // what happened
	Action  string `json:"action"`  // what to do about it
	Code    string `json:"code"`    // support reference
}

type kindMessage struct {
	target error
	status int
	msg    UserMessage
}

// kindMessages is checked in order with errors.Is. StoreError wraps both
// ErrStoreFailure and the cause, so the more specific kinds come first.
var kindMessages = []kindMessage{
	{ErrNotAuthenticated, http.StatusUnauthorized, UserMessage{
		Message: "You are not signed in",
		Action:  "Sign in again and retry",
		Code:    "AUTH001",
	}},
	{ErrUnsupportedFormat, http.StatusUnsupportedMediaType, UserMessage{
		Message: "Unsupported file format",
		Action:  "Use a CSV, XLSX or XLS file",
		Code:    "IMP001",
	}},
	{ErrEmptyBatch, http.StatusUnprocessableEntity, UserMessage{
		Message: "No valid records found in the file",
		Action:  "Every row needs a name and an email; check the header row",
		Code:    "IMP002",
	}},
	{ErrFileTooLarge, http.StatusRequestEntityTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "IMP005",
	}},
	{ErrDecodeFailure, http.StatusUnprocessableEntity, UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file is not damaged and was saved in the format its extension says",
		Code:    "IMP003",
	}},
	{ErrTooManyImports, http.StatusTooManyRequests, UserMessage{
		Message: "The system is busy with other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP004",
	}},
	{ErrNotFound, http.StatusNotFound, UserMessage{
		Message: "Lead not found",
		Action:  "It may have been deleted; reload the board",
		Code:    "STO002",
	}},
	{ErrUnknownStage, http.StatusBadRequest, UserMessage{
		Message: "Unknown pipeline stage",
		Action:  "Use one of: new, contacted, qualified, proposal, won, lost",
		Code:    "VAL002",
	}},
	{ErrUnknownInteractionKind, http.StatusBadRequest, UserMessage{
		Message: "Unknown interaction type",
		Action:  "Use one of: email, call, meeting, note, other",
		Code:    "VAL003",
	}},
	{ErrDragInProgress, http.StatusConflict, UserMessage{
		Message: "Another lead is already being moved",
		Action:  "Finish or cancel the current move first",
		Code:    "VAL004",
	}},
	{ErrNoActiveDrag, http.StatusConflict, UserMessage{
		Message: "No lead is being moved",
		Action:  "Start dragging a lead before dropping it",
		Code:    "VAL004",
	}},
	{ErrLeadNotOnBoard, http.StatusConflict, UserMessage{
		Message: "That lead is not on your board",
		Action:  "Reload the board and try again",
		Code:    "VAL004",
	}},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ002",
	}},
	{context.Canceled, 499, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
}

var validationMessage = UserMessage{
	Message: "Some fields are invalid",
	Action:  "Correct the highlighted fields and submit again",
	Code:    "VAL001",
}

// errorPattern matches driver messages that reach MapError only as text.
type errorPattern struct {
	pattern string
	status  int
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"duplicate key", http.StatusConflict, UserMessage{
		Message: "A record with this ID already exists",
		Action:  "Reload the board; the record may already be saved",
		Code:    "DB001",
	}},
	{"violates check constraint", http.StatusBadRequest, UserMessage{
		Message: "A value is outside the allowed set",
		Action:  "Check the stage and interaction type values",
		Code:    "DB002",
	}},
	{"violates foreign key", http.StatusConflict, UserMessage{
		Message: "Referenced lead does not exist",
		Action:  "Reload the board; the lead may have been deleted",
		Code:    "DB003",
	}},
	{"connection refused", http.StatusServiceUnavailable, UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", http.StatusServiceUnavailable, UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"deadlock", http.StatusServiceUnavailable, UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB006",
	}},
}

// storeMessage is used for StoreErrors whose cause matches no pattern.
var storeMessage = UserMessage{
	Message: "The record store could not complete the request",
	Action:  "Nothing was saved; please try again",
	Code:    "STO001",
}

// defaultMessage is the ERR000 fallback.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a UserMessage. A nil error maps to the zero value.
func MapError(err error) UserMessage {
	msg, _ := classify(err)
	return msg
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	_, status := classify(err)
	return status
}

func classify(err error) (UserMessage, int) {
	if err == nil {
		return UserMessage{}, http.StatusOK
	}
	for _, k := range kindMessages {
		if errors.Is(err, k.target) {
			return k.msg, k.status
		}
	}
	if IsValidation(err) {
		return validationMessage, http.StatusBadRequest
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, ep.status
		}
	}
	if errors.Is(err, ErrStoreFailure) {
		return storeMessage, http.StatusBadGateway
	}
	return defaultMessage, http.StatusInternalServerError
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
