package application

import (
	"fmt"
	"strings"
)

// PersonaProfile は日記から生成された人格プロファイルを表します。
// 人格の生成自体は外部コラボレータの責務で、ここでは読み取るだけ
type PersonaProfile struct {
	Name          string
	OwnerName     string
	Personality   string
	Traits        []string
	SpeakingStyle string
	Summary       string
	Interests     []string
}

// DisplayName は人格名を返します。未設定の場合は所有者名から導出します
func (p PersonaProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.OwnerName + "の分身"
}

func renderProfile(persona PersonaProfile) string {
	var b strings.Builder
	b.WriteString("===== ペルソナプロフィール =====\n")
	fmt.Fprintf(&b, "名前: %s\n", persona.DisplayName())
	fmt.Fprintf(&b, "性格: %s\n", persona.Personality)
	fmt.Fprintf(&b, "特性: %s\n", strings.Join(persona.Traits, ", "))
	fmt.Fprintf(&b, "話し方: %s\n", persona.SpeakingStyle)
	fmt.Fprintf(&b, "要約: %s\n", persona.Summary)
	fmt.Fprintf(&b, "関心事: %s\n", strings.Join(persona.Interests, ", "))
	b.WriteString("================================")
	return b.String()
}

// buildSelfChatPrompt は本人が自分のペルソナと話すときのシステムプロンプトを組み立てます
func buildSelfChatPrompt(persona PersonaProfile, memoryBlock string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "あなたは%sさんの内面の声であり、自己省察を助けるAIペルソナです。\n", persona.OwnerName)
	fmt.Fprintf(&b, "%sさんの日記をもとに生成されており、自己理解と成長を助ける対話をします。\n\n", persona.OwnerName)

	b.WriteString(renderProfile(persona))
	b.WriteString("\n\n")

	b.WriteString("===== 日記の記憶 =====\n")
	b.WriteString(memoryBlock)
	b.WriteString("\n======================\n\n")

	b.WriteString("対話のルール:\n")
	b.WriteString("1. 共感的で温かい対話をしてください\n")
	b.WriteString("2. 自己省察を促す問いを投げかけてください\n")
	b.WriteString("3. 過去の日記に似た状況があれば思い出させてください\n")
	b.WriteString("4. 長すぎる返答は避け、会話体で自然に話してください\n\n")

	fmt.Fprintf(&b, "重要: あなたは%sさんの内面の声です。批判ではなく、理解と成長を助ける役割を担ってください。", persona.OwnerName)

	return b.String()
}

// buildFriendChatPrompt は友人が他人のペルソナと話すときのシステムプロンプトを組み立てます
func buildFriendChatPrompt(persona PersonaProfile, requesterName, memoryBlock string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "あなたは%sさんのペルソナです。\n", persona.OwnerName)
	fmt.Fprintf(&b, "%sさんの日記をもとに生成されたAIペルソナとして対話します。\n\n", persona.OwnerName)

	b.WriteString(renderProfile(persona))
	b.WriteString("\n\n")

	b.WriteString("===== 日記の記憶 =====\n")
	b.WriteString(memoryBlock)
	b.WriteString("\n======================\n\n")

	b.WriteString("対話のルール:\n")
	fmt.Fprintf(&b, "1. %sさんの性格と話し方をできるだけ反映して対話してください\n", persona.OwnerName)
	b.WriteString("2. 日記にない情報は「よくわからない」「本人に直接聞いてみて」と答えてください\n")
	b.WriteString("3. 個人的な秘密や繊細な情報は決して共有しないでください\n")
	b.WriteString("4. 断定ではなく「〜だと思う」「たぶん〜じゃないかな」のような推測の表現を使ってください\n")
	b.WriteString("5. 長すぎる返答は避けてください\n\n")

	fmt.Fprintf(&b, "重要: あなたは実際の%sさんではありません。日記をもとにしたAIペルソナであることを踏まえて答えてください。\n\n", persona.OwnerName)
	fmt.Fprintf(&b, "現在の対話相手: %sさん", requesterName)

	return b.String()
}
