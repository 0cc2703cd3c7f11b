package main

import (
	"os"
	"strings"
)

// parseOwnerName извлекает имя владельца пода из hostname:
// Deployment — <name>-<hash>-<suffix>, StatefulSet — <name>-<ordinal>.
// Иначе hostname возвращается как есть.
func parseOwnerName(hostname string) string {
	parts := strings.Split(hostname, "-")

	if n := len(parts); n >= 3 && isPodSuffix(parts[n-1]) && isReplicaSetHash(parts[n-2]) {
		return strings.Join(parts[:n-2], "-")
	}
	if n := len(parts); n >= 2 && isDigits(parts[n-1]) {
		return strings.Join(parts[:n-1], "-")
	}
	return hostname
}

// ownerName возвращает имя приложения для метрик зависимостей.
func ownerName(configured string) string {
	if configured != "" {
		return configured
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "docvault"
	}
	return parseOwnerName(hostname)
}

func isPodSuffix(s string) bool {
	return len(s) == 5 && isAlnum(s)
}

func isReplicaSetHash(s string) bool {
	return len(s) >= 8 && len(s) <= 10 && isAlnum(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
