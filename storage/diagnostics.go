package storage

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"
)

// RedactURI masks the password in a connection string so it can be logged.
// Strings that do not parse as URLs are returned unchanged when they hold
// no userinfo, and replaced by a placeholder otherwise.
func RedactURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		if strings.Contains(uri, "@") {
			return "[REDACTED]"
		}
		return uri
	}
	if u.User == nil {
		return uri
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// ClassifyConnectionError returns a remediation hint for a failed MongoDB
// connection attempt. It returns an empty string for a nil error.
func ClassifyConnectionError(err error, uri string) string {
	if err == nil {
		return ""
	}

	target := RedactURI(uri)
	msg := strings.ToLower(err.Error())

	if strings.TrimSpace(uri) == "" {
		return "MONGO_URI is not set. Set it in the environment or in the .env file, " +
			"e.g. MONGO_URI=mongodb://localhost:27017/app"
	}

	if strings.Contains(msg, "error parsing uri") || strings.Contains(msg, "scheme must be") {
		return fmt.Sprintf("MONGO_URI %q is not a valid connection string. "+
			"It must start with mongodb:// or mongodb+srv://", target)
	}

	if strings.Contains(msg, "auth") || strings.Contains(msg, "unauthorized") {
		return fmt.Sprintf("Authentication failed for %s. "+
			"Check the username, password and authSource in MONGO_URI", target)
	}

	if strings.Contains(msg, "no such host") || strings.Contains(msg, "lookup") {
		return fmt.Sprintf("Cannot resolve the host in %s. "+
			"Check the hostname and DNS configuration", target)
	}

	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(msg, "connection refused") ||
		(errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Err != nil &&
			strings.Contains(strings.ToLower(opErr.Err.Error()), "refused")) {
		return fmt.Sprintf("Connection refused by %s. "+
			"MongoDB is probably not running or listens on another port", target)
	}

	if mongo.IsTimeout(err) || strings.Contains(msg, "server selection") || strings.Contains(msg, "deadline exceeded") {
		return fmt.Sprintf("Timed out waiting for a MongoDB server at %s. "+
			"Check that the server is reachable and that firewalls allow the connection", target)
	}

	return fmt.Sprintf("Failed to connect to %s. "+
		"Ensure MongoDB is running and reachable", target)
}
