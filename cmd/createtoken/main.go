package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"axiapac.com/biometrics/security"
)

// createtoken prints a service token signed with the given base64 secret, for calling
// the assists API or the biometrics API by hand.
func main() {
	secret := flag.String("secret", os.Getenv("AXIAPAC_SIGNING_SECRET"), "base64 signing secret")
	user := flag.String("user", "assists-sync", "token subject")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		log.Fatal("signing secret is required (-secret or AXIAPAC_SIGNING_SECRET)")
	}

	identity := security.DefaultServiceIdentity()
	identity.UserName = *user

	token, err := security.CreateServiceToken(identity, *secret, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
