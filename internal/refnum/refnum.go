// Package refnum generates human-facing reference numbers for accounts and
// transactions: a prefix, the creation time in milliseconds and a four-digit
// random suffix.
package refnum

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	AccountPrefix     = "AC"
	TransactionPrefix = "TXN"
)

func Generate(prefix string, now time.Time) string {
	return fmt.Sprintf("%s%d%04d", prefix, now.UnixMilli(), rand.IntN(10000))
}

func Account(now time.Time) string {
	return Generate(AccountPrefix, now)
}

func Transaction(now time.Time) string {
	return Generate(TransactionPrefix, now)
}
