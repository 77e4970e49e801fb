package api

import (
	"net"
	"net/http"

	"go.uber.org/zap"
)

// writeError writes a plain-text error response and logs it. Client errors
// are logged as warnings, everything else as errors.
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		fields := []interface{}{"status_code", statusCode}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}
		if statusCode < http.StatusInternalServerError {
			logger.Warnw(message, fields...)
		} else {
			logger.Errorw(message, fields...)
		}
	}

	http.Error(w, message, statusCode)
}

// clientIP returns the IP of the direct peer.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
