package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/infrastructure/repositories/csv"
)

const actorKey = "actor"

// Claims identify the caller. Subject carries the user id; a subject that is
// not a UUID is replaced by the id derived from the username.
type Claims struct {
	Username string        `json:"username"`
	Role     entities.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the caller identity
func (c *Claims) Actor() (entities.Actor, error) {
	if c.Username == "" {
		return entities.Actor{}, errors.New("token has no username")
	}
	if !c.Role.Valid() {
		return entities.Actor{}, errors.New("token has an unknown role")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		id = csv.ActorID(c.Username)
	}
	return entities.Actor{ID: id, Username: c.Username, Role: c.Role}, nil
}

// JWTProtected requires an HS256 bearer token signed with secret
func JWTProtected(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header is missing",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Bearer token not found",
			})
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}
		actor, err := claims.Actor()
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// actorFrom returns the caller stored by JWTProtected
func actorFrom(c *fiber.Ctx) entities.Actor {
	actor, _ := c.Locals(actorKey).(entities.Actor)
	return actor
}
