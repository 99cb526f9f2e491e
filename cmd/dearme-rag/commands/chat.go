package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	chatapp "github.com/jinford/dearme-rag/internal/module/chat/application"
)

// ChatAskAction はペルソナとの1対話ターンを実行するコマンドのアクション
func ChatAskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	message := cmd.String("message")

	ownerID, err := uuid.Parse(cmd.String("owner-id"))
	if err != nil {
		return fmt.Errorf("owner-idのパースに失敗: %w", err)
	}

	// requester-id省略時は本人との対話として扱う
	requesterID := ownerID
	if raw := cmd.String("requester-id"); raw != "" {
		requesterID, err = uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("requester-idのパースに失敗: %w", err)
		}
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	persona := chatapp.PersonaProfile{
		Name:          cmd.String("persona-name"),
		OwnerName:     cmd.String("owner-name"),
		Personality:   cmd.String("personality"),
		SpeakingStyle: cmd.String("speaking-style"),
	}
	if traits := cmd.String("traits"); traits != "" {
		persona.Traits = splitAndTrim(traits)
	}
	if interests := cmd.String("interests"); interests != "" {
		persona.Interests = splitAndTrim(interests)
	}

	slog.Info("ペルソナ対話ターンを開始",
		"ownerID", ownerID,
		"requesterID", requesterID,
	)

	reply, err := appCtx.Container.ChatService.Reply(ctx, chatapp.ReplyInput{
		Persona:       persona,
		OwnerID:       ownerID,
		RequesterID:   requesterID,
		RequesterName: cmd.String("requester-name"),
		Message:       message,
	})
	if err != nil {
		slog.Error("ペルソナ応答の生成に失敗しました", "error", err)
		return err
	}

	fmt.Println(reply)
	return nil
}

// splitAndTrim はカンマ区切り文字列を要素のスライスに分割する
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
