package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/database"
	"github.com/stemsi/exstem-cbt/internal/logger"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/repository"
	"github.com/stemsi/exstem-cbt/internal/service"
)

// seed-exam publishes a demo question bank covering every question type, so a
// fresh install can be tried end to end with the token LATIHAN.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	repo := repository.NewQuestionBankRepository(pool)
	examService := service.NewExamService(repo, rdb, cfg, log)

	fmt.Println("=== Seeding Demo Question Bank ===")

	bank := &model.ExamPackage{
		Token:            "LATIHAN",
		Subject:          "Latihan Ujian Berbasis Komputer",
		TimeLimitMinutes: 30,
		Published:        true,
		Questions: []model.Question{
			{
				ID:            "q1",
				Type:          model.QuestionTypeSingleChoice,
				Text:          "Ibu kota Indonesia adalah ...",
				Options:       []string{"Bandung", "Jakarta", "Surabaya", "Medan"},
				CorrectAnswer: model.IndexAnswer(1),
			},
			{
				ID:            "q2",
				Type:          model.QuestionTypeMultipleChoice,
				Text:          "Manakah yang termasuk bilangan prima?",
				Options:       []string{"2", "4", "5", "9"},
				CorrectAnswer: model.IndicesAnswer(0, 2),
			},
			{
				ID:            "q3",
				Type:          model.QuestionTypeComplexCategory,
				Text:          "Tentukan kebenaran setiap pernyataan berikut.",
				Options:       []string{"Air mendidih pada 100°C di permukaan laut", "Matahari terbit dari barat", "1 km = 1000 m"},
				CorrectAnswer: model.FlagsAnswer(true, false, true),
				TrueLabel:     "Sesuai",
				FalseLabel:    "Tidak Sesuai",
			},
			{
				ID:            "q4",
				Type:          model.QuestionTypeTrueFalse,
				Text:          "Pilih Benar atau Salah.",
				Options:       []string{"Segitiga memiliki tiga sisi", "Persegi memiliki lima sudut"},
				CorrectAnswer: model.FlagsAnswer(true, false),
			},
			{
				ID:   "q5",
				Type: model.QuestionTypeShortAnswer,
				Text: "Tuliskan nama presiden pertama Republik Indonesia.",
			},
		},
	}

	if err := repo.Upsert(ctx, bank); err != nil {
		log.Fatal().Err(err).Msg("Failed to upsert question bank")
	}
	if err := examService.InvalidateCache(ctx, bank.Token); err != nil {
		log.Warn().Err(err).Str("token", bank.Token).Msg("Failed to invalidate cached package")
	}

	fmt.Printf("\nSeed completed! Bank '%s' (token %s, id %s) has %d questions.\n",
		bank.Subject, bank.Token, bank.ID, len(bank.Questions))
}
