package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"plantscan/internal/api"
	"plantscan/internal/plantid"
)

func main() {
	plantCfg := plantid.Config{
		APIKey:   os.Getenv("PLANT_ID_API_KEY"),
		BaseURL:  os.Getenv("PLANT_ID_BASE_URL"),
		Language: os.Getenv("PLANT_ID_LANGUAGE"),
	}
	if timeout := os.Getenv("PLANT_ID_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			plantCfg.Timeout = d
		} else {
			logrus.WithError(err).Warn("ignoring PLANT_ID_TIMEOUT")
		}
	}

	var maxUpload int64
	if v := strings.TrimSpace(os.Getenv("PLANTSCAN_MAX_UPLOAD_MB")); v != "" {
		if mb, err := strconv.Atoi(v); err == nil && mb > 0 {
			maxUpload = int64(mb) << 20
		}
	}

	origins := []string{
		"http://localhost:2000",
		"http://127.0.0.1:2000",
	}
	if v := strings.TrimSpace(os.Getenv("PLANTSCAN_ALLOWED_ORIGINS")); v != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	cfg := api.Config{
		PlantID:        plantCfg,
		DBName:         "plantscan",
		SilentDB:       true,
		AllowedOrigins: origins,
		MaxUploadBytes: maxUpload,
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.Infof("starting plantscan on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
