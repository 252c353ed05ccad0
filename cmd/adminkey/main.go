package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/makkenzo/machine-license-api/internal/util"
)

func main() {
	hashOnly := flag.String("hash", "", "Hash an existing admin key instead of generating a new one")
	flag.Parse()

	if *hashOnly != "" {
		keyHash, err := util.HashAdminKey(*hashOnly)
		if err != nil {
			log.Fatalf("Failed to hash admin key: %v", err)
		}
		fmt.Println(keyHash)
		return
	}

	fullKey, keyHash, err := util.GenerateAdminKey()
	if err != nil {
		log.Fatalf("Failed to generate admin key: %v", err)
	}

	fmt.Printf("Generated admin API key (SAVE THIS securely!):\n%s\n\n", fullKey)
	fmt.Printf("Key hash (set as admin.apiKeyHash / ADMIN_APIKEYHASH):\n%s\n", keyHash)
}
