// Command tokengen mints an access token for local testing against the API.
//
//	go run ./cmd/tokengen -actor op-1 -role operator
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"pulsecall/internal/auth"
	"pulsecall/internal/config"
	"pulsecall/internal/rbac"
	"pulsecall/pkg/logger"
)

func main() {
	actor := flag.String("actor", "op-local", "actor id written to the token")
	role := flag.String("role", rbac.RoleOperator, "role: operator, supervisor, admin or service")
	flag.Parse()

	log := logger.New("pulsecall-tokengen", os.Getenv("APP_ENV"))

	// Only the auth settings matter here; the rest of the config may be incomplete.
	authCfg, err := config.LoadAuth()
	if err != nil {
		log.Error("auth config invalid", "err", err)
		os.Exit(1)
	}

	switch *role {
	case rbac.RoleOperator, rbac.RoleSupervisor, rbac.RoleAdmin, rbac.RoleService:
	default:
		log.Error("unknown role", "role", *role)
		os.Exit(2)
	}

	m, err := auth.NewManager(authCfg)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	token, err := m.IssueAccess(time.Now(), *actor, *role)
	if err != nil {
		log.Error("token issuance failed", "err", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
