// vapidgen prints a fresh VAPID keypair as env lines ready for .env.
package main

import (
	"fmt"
	"log"

	"push-delivery-plane/internal/webpush"
)

func main() {
	privateKey, publicKey, err := webpush.GenerateKeys()
	if err != nil {
		log.Fatalf("vapidgen: %v", err)
	}

	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Println("VAPID_SUBJECT=mailto:ops@example.com")
}
