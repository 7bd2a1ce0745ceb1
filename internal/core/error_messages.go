package core

// error_messages.go maps technical errors to user messages with a code that
// can be quoted to support.
//
// Codes by category:
//
//	DB001-DB005     storage (duplicate key, connection, timeout, deadlock)
//	FILE001-FILE003 upload payload (no file, too large, unreadable form)
//	UPL001-UPL003   ingest run (busy, cancelled, timed out)
//	ROW001          row lookup
//	RATE001         throttling
//	ERR000          anything else; check logs for the technical error
//
// Sentinel errors are checked first with errors.Is. Other errors are matched
// case-insensitively by substring and the first match wins, so specific
// patterns come before general ones.

import (
	"context"
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var (
	msgNoFile = UserMessage{
		Message: "No se recibió ningún archivo.",
		Action:  "Seleccione uno o más archivos de reporte para subir.",
		Code:    "FILE001",
	}
	msgRowNotFound = UserMessage{
		Message: "Fila no encontrada.",
		Action:  "Recargue la lista; la fila pudo haber sido eliminada.",
		Code:    "ROW001",
	}
	msgBusy = UserMessage{
		Message: "El sistema está procesando otras cargas.",
		Action:  "Espere un momento e intente de nuevo.",
		Code:    "UPL001",
	}
	msgCancelled = UserMessage{
		Message: "La solicitud fue cancelada.",
		Action:  "Intente de nuevo.",
		Code:    "UPL002",
	}
	msgDeadline = UserMessage{
		Message: "La solicitud excedió el tiempo de espera.",
		Action:  "Suba menos archivos a la vez.",
		Code:    "UPL003",
	}
)

// sentinelMessages is checked before pattern matching.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrNoFiles, msgNoFile},
	{ErrRowNotFound, msgRowNotFound},
	{ErrTooManyUploads, msgBusy},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgDeadline},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Storage
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "Ya existe una fila con esta identidad.",
			Action:  "Repita la carga; las filas existentes se combinan automáticamente.",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "No se pudo conectar a la base de datos.",
			Action:  "Intente de nuevo en unos momentos.",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Se interrumpió la conexión con la base de datos.",
			Action:  "Intente de nuevo.",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "La base de datos estaba ocupada con operaciones en conflicto.",
			Action:  "Intente de nuevo.",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "La operación excedió el tiempo de espera.",
			Action:  "Pruebe con un archivo más pequeño o intente más tarde.",
			Code:    "DB005",
		},
	},

	// Upload payload
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "La carga supera el tamaño máximo permitido.",
			Action:  "Divida el reporte en archivos más pequeños.",
			Code:    "FILE002",
		},
	},
	{
		pattern: "multipart",
		msg: UserMessage{
			Message: "No se pudo leer el formulario de carga.",
			Action:  "Envíe los archivos como multipart/form-data en el campo \"files\".",
			Code:    "FILE003",
		},
	},

	// Throttling
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Demasiadas solicitudes.",
			Action:  "Espere un momento antes de volver a intentar.",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches.
var defaultMessage = UserMessage{
	Message: "Ocurrió un error inesperado.",
	Action:  "Intente de nuevo o contacte a soporte.",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
