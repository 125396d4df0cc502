// One-off: go run scripts/devtoken.go -key dev_private.pem -sub user_dev
// Mints an RS256 session token accepted by the API when CLERK_JWT_KEY holds
// the matching public key. Local development only.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	keyPath := flag.String("key", "dev_private.pem", "PEM encoded RSA private key")
	sub := flag.String("sub", "user_dev", "account id (sub claim)")
	sid := flag.String("sid", "sess_dev", "session id (sid claim)")
	azp := flag.String("azp", "http://localhost:5173", "authorized party")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	pemBytes, err := os.ReadFile(*keyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": *sub,
		"sid": *sid,
		"azp": *azp,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	}).SignedString(key)
	if err != nil {
		panic(err)
	}
	fmt.Print(token)
}
