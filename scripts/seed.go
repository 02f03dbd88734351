// Seeds demo data for local development: projects, plots and portal
// accounts. Profiles and password hashes are written straight to Firestore;
// no Firebase Auth records are created, so the disable cascade needs a real
// provider project to observe end to end.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"plotgate/auth"
	"plotgate/config"
	"plotgate/db"
	"plotgate/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	ctx := context.Background()
	firestoreDB, err := db.NewFirestoreDB(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer firestoreDB.Close()

	log.Println("🌱 Starting database seeding...")

	if err := seedProjects(ctx, firestoreDB); err != nil {
		log.Fatalf("Failed to seed projects: %v", err)
	}
	if err := seedUsers(ctx, firestoreDB); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Println("✅ Seeding complete")
}

func seedProjects(ctx context.Context, firestoreDB *db.FirestoreDB) error {
	projects := []models.Project{
		{ProjectID: "proj-green-acres", Name: "Green Acres", Location: "East Township"},
		{ProjectID: "proj-lake-view", Name: "Lake View Estates", Location: "North Shore"},
	}
	for i := range projects {
		if err := firestoreDB.CreateProject(ctx, &projects[i]); err != nil {
			return err
		}
		log.Printf("  project: %s", projects[i].Name)
	}

	plots := []models.Plot{
		{PlotID: "plot-ga-001", ProjectID: "proj-green-acres", PlotNumber: "GA-001", OwnerID: "user-client-1", Status: models.PlotSold},
		{PlotID: "plot-ga-002", ProjectID: "proj-green-acres", PlotNumber: "GA-002", Status: models.PlotAvailable},
		{PlotID: "plot-lv-014", ProjectID: "proj-lake-view", PlotNumber: "LV-014", Status: models.PlotReserved},
	}
	for i := range plots {
		if err := firestoreDB.CreatePlot(ctx, &plots[i]); err != nil {
			return err
		}
		log.Printf("  plot: %s", plots[i].PlotNumber)
	}
	return nil
}

func seedUsers(ctx context.Context, firestoreDB *db.FirestoreDB) error {
	now := time.Now()
	seeded := []struct {
		user     models.User
		password string
	}{
		{
			user: models.User{
				UserID: "user-admin-1", Email: "admin@plotgate.dev", Name: "Site Admin",
				Role: models.RoleAdmin, CreatedAt: now,
			},
			password: "admin1234",
		},
		{
			user: models.User{
				UserID: "user-manager-1", Email: "manager1@plotgate.dev", Name: "Gate Manager One",
				Role: models.RoleManager, CreatedAt: now,
			},
			password: "manager1234",
		},
		{
			user: models.User{
				UserID: "user-manager-2", Email: "manager2@plotgate.dev", Name: "Gate Manager Two",
				Role: models.RoleManager, CreatedAt: now,
			},
			password: "manager1234",
		},
		{
			user: models.User{
				UserID: "user-client-1", Email: "client1@plotgate.dev", Name: "First Client",
				Phone: "555-0101", Role: models.RoleClient, CreatedAt: now,
			},
			password: "client1234",
		},
	}

	for _, s := range seeded {
		if err := firestoreDB.CreateUserProfile(ctx, &s.user); err != nil {
			return err
		}
		hash, err := auth.HashPassword(s.password)
		if err != nil {
			return err
		}
		if err := firestoreDB.StorePasswordHash(ctx, s.user.UserID, hash); err != nil {
			return err
		}
		log.Printf("  user: %s (%s)", s.user.Email, s.user.Role)
	}
	return nil
}
