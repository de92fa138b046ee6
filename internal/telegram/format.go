package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"keto-planner/internal/app"
	"keto-planner/internal/nutrition"
	"keto-planner/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func formatCalc(out *nutrition.CalcOutput) string {
	var sb strings.Builder
	sb.WriteString("📊 *Your Numbers*\n\n")
	fmt.Fprintf(&sb, "• BMI: %.1f\n", out.BMI)
	fmt.Fprintf(&sb, "• BMR: %.0f kcal\n", out.BMR)
	fmt.Fprintf(&sb, "• TDEE: %.0f kcal\n", out.TDEE)
	if out.BodyFatPercentEstimate != nil {
		fmt.Fprintf(&sb, "• Body fat (est.): %.1f%%\n", *out.BodyFatPercentEstimate)
	}
	if out.FFMI != nil {
		fmt.Fprintf(&sb, "• FFMI: %.1f\n", *out.FFMI)
	}

	m := out.Macros
	sb.WriteString("\n🥑 *Daily Keto Targets*\n")
	fmt.Fprintf(&sb, "• Calories: %.0f kcal\n", m.CaloriesTotal)
	fmt.Fprintf(&sb, "• Protein: %.0f g\n", m.ProteinG)
	fmt.Fprintf(&sb, "• Fat: %.0f g\n", m.FatG)
	fmt.Fprintf(&sb, "• Net carbs: %.0f g\n", m.NetCarbsG)

	if n := len(out.Forecast); n > 1 {
		last := out.Forecast[n-1]
		fmt.Fprintf(&sb, "\n📈 *Forecast*: %.1f kg → %.1f kg in %d weeks\n", out.Forecast[0].WeightKg, last.WeightKg, last.Week)
	}
	return sb.String()
}

// maxMessageLen stays under Telegram's 4096 character limit per message.
const maxMessageLen = 4000

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// formatPlanMarkdownParts renders the plan and the shopping list, each split into
// messages that fit Telegram's size limit. Days are never split unless one day alone
// is too long.
func formatPlanMarkdownParts(plan *planner.MealPlan) ([]string, []string) {
	blocks := []string{"📅 *Keto Meal Plan*\n"}
	for _, dp := range plan.Days {
		var pb strings.Builder
		fmt.Fprintf(&pb, "\n*Day %d*\n", dp.Day)
		for _, meal := range dp.Meals {
			fmt.Fprintf(&pb, "_%s_ (%.0f kcal, P %.0fg / F %.0fg / C %.0fg)\n",
				escape(meal.MealName), meal.Calories, meal.ProteinG, meal.FatG, meal.NetCarbsG)
			for _, item := range meal.Items {
				fmt.Fprintf(&pb, "  • %s, %.0fg", escape(item.Name), item.Grams)
				if item.Notes != nil && *item.Notes != "" {
					fmt.Fprintf(&pb, " (%s)", escape(*item.Notes))
				}
				pb.WriteString("\n")
			}
		}
		t := dp.Totals
		fmt.Fprintf(&pb, "*Totals*: %.0f kcal, P %.0fg / F %.0fg / C %.0fg\n", t.Calories, t.ProteinG, t.FatG, t.NetCarbsG)
		blocks = append(blocks, pb.String())
	}

	shopping := []string{"🛒 *Shopping List*\n\n"}
	for _, item := range plan.ShoppingList {
		shopping = append(shopping, fmt.Sprintf("• %s\n", escape(item)))
	}
	if len(plan.Assumptions) > 0 {
		shopping = append(shopping, "\n📝 *Assumptions*\n")
		for _, a := range plan.Assumptions {
			shopping = append(shopping, fmt.Sprintf("• %s\n", escape(a)))
		}
	}

	return chunkMessages(blocks, maxMessageLen), chunkMessages(shopping, maxMessageLen)
}

// chunkMessages packs blocks into messages of at most limit runes. Oversized blocks
// are split on line boundaries, and oversized lines are cut.
func chunkMessages(blocks []string, limit int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	add := func(piece string) {
		n := utf8.RuneCountInString(piece)
		if curLen+n > limit {
			flush()
		}
		cur.WriteString(piece)
		curLen += n
	}

	for _, block := range blocks {
		if utf8.RuneCountInString(block) <= limit {
			add(block)
			continue
		}
		for _, line := range strings.SplitAfter(block, "\n") {
			runes := []rune(line)
			for len(runes) > limit {
				add(string(runes[:limit]))
				runes = runes[limit:]
			}
			if len(runes) > 0 {
				add(string(runes))
			}
		}
	}
	flush()
	return out
}

func formatError(err error) string {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	kind := planner.KindOf(err)
	switch {
	case nutrition.IsValidationError(err), kind == planner.KindInvalidInput:
		return fmt.Sprintf("⚠️ *Invalid input:* %s\n\nSend /help for usage.", escape(err.Error()))
	case kind == planner.KindProviderRateLimited:
		return "⏳ *Rate limited:* the model quota is exhausted. Please try again later."
	case kind != "":
		return fmt.Sprintf("❌ *Error generating plan* (%s):\n```\n%s\n```", escape(string(kind)), safeErr)
	default:
		return fmt.Sprintf("❌ *Error:*\n```\n%s\n```", safeErr)
	}
}

func formatUsage(report *app.UsageReport) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(report.Daily) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range report.Daily {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	if len(report.ByAgent) > 0 {
		sb.WriteString("\n🔧 *Pipeline Stages*\n")
		for _, c := range report.ByAgent {
			fmt.Fprintf(&sb, "• %s: %d (%d failed)\n", escape(c.AgentName), c.Count, c.Failures)
		}
	}

	health := report.Health
	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}
