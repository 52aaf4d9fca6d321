package telegram

import (
	"fmt"
	"html"
	"strings"

	"UD_contest_bot/internal/flow"
	"UD_contest_bot/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const regionsPerRow = 2

const (
	textSubscribe = "Welcome to the contest!\n\n" +
		"To take part, join our channels first. It keeps you up to date with every announcement:\n\n"
	textNotSubscribed      = "You have not joined all channels yet:\n\n"
	textNotSubscribedAlert = "You have not joined all channels yet! ❌"
	textSubscribeReminder  = "Please join the channels above and press \"Check\"."
	textCheckButton        = "✅ Check"
	textAlreadyRegistered  = "You are already registered."
	textWelcomeBack        = "Welcome back! You can use the bot again. ✅"
	textRestart            = "Please press /start to register."
	textAskName            = "Please send your full name. It will be printed on your certificates. ✨"
	textAskNameAgain       = "Please send your full name as a text message."
	textAskPhone           = "Thank you! Now share your phone number with the button below. 📱"
	textPhoneRequired      = "Please use the button below to share your phone number."
	textPhoneButton        = "📱 Share contact"
	textOwnContactOnly     = "Please share your own contact with the button below."
	textPhoneTaken         = "⚠️ This phone number is already registered. Please share your own number or contact the admin."
	textAskRegion          = "Great! Choose the region you work in. 📍"
	textAskStudyStatus     = "Have you studied at the Robotronix centre before?"
	textAskAgeRange        = "Choose your age:"
	textChooseOption       = "Please choose one of the options below.\n\n"
	textStale              = "This button is out of date. Please press /start to begin again."
	textCompleted          = "🎉 Congratulations, %s! You are registered for the contest.\n\n" +
		"Invite friends with your personal link to earn bonus points."
	textCancelled   = "Registration cancelled. Press /start to begin again."
	textTryAgain    = "Something went wrong. Please try again later."
	textReferralNew = "🎉 %s registered with your link! You earned %d bonus points."
)

var studyStatusLabels = map[model.StudyStatus]string{
	model.StudyStatusNew:       "No, this is my first time",
	model.StudyStatusStudying:  "Yes, I am studying now",
	model.StudyStatusGraduated: "Yes, I have graduated",
}

// Render turns a flow reply into the messages to send to chatID.
func Render(chatID int64, reply flow.Reply) []tgbotapi.Chattable {
	var msg tgbotapi.MessageConfig

	switch reply.Kind {
	case flow.ReplyNone:
		return nil
	case flow.ReplySubscribe:
		text := textSubscribe
		if reply.Corrective {
			text = textSubscribeReminder
		}
		msg = tgbotapi.NewMessage(chatID, text+channelList(reply.Missing))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = subscribeKeyboard(reply.Missing)
	case flow.ReplyNotSubscribed:
		msg = tgbotapi.NewMessage(chatID, textNotSubscribed+channelList(reply.Missing))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = subscribeKeyboard(reply.Missing)
	case flow.ReplyAlreadyRegistered:
		msg = tgbotapi.NewMessage(chatID, textAlreadyRegistered)
	case flow.ReplyWelcomeBack:
		msg = tgbotapi.NewMessage(chatID, textWelcomeBack)
	case flow.ReplyRestart:
		msg = tgbotapi.NewMessage(chatID, textRestart)
	case flow.ReplyAskName:
		text := textAskName
		if reply.Corrective {
			text = textAskNameAgain
		}
		msg = tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	case flow.ReplyAskPhone:
		msg = tgbotapi.NewMessage(chatID, textAskPhone)
		msg.ReplyMarkup = phoneKeyboard()
	case flow.ReplyPhoneRequired:
		msg = tgbotapi.NewMessage(chatID, textPhoneRequired)
		msg.ReplyMarkup = phoneKeyboard()
	case flow.ReplyOwnContactOnly:
		msg = tgbotapi.NewMessage(chatID, textOwnContactOnly)
		msg.ReplyMarkup = phoneKeyboard()
	case flow.ReplyPhoneTaken:
		msg = tgbotapi.NewMessage(chatID, textPhoneTaken)
		msg.ReplyMarkup = phoneKeyboard()
	case flow.ReplyAskRegion:
		msg = tgbotapi.NewMessage(chatID, choosePrefix(reply)+textAskRegion)
		msg.ReplyMarkup = regionKeyboard(reply.Regions)
	case flow.ReplyAskStudyStatus:
		msg = tgbotapi.NewMessage(chatID, choosePrefix(reply)+textAskStudyStatus)
		msg.ReplyMarkup = studyStatusKeyboard()
	case flow.ReplyAskAgeRange:
		msg = tgbotapi.NewMessage(chatID, choosePrefix(reply)+textAskAgeRange)
		msg.ReplyMarkup = ageRangeKeyboard()
	case flow.ReplyStale:
		msg = tgbotapi.NewMessage(chatID, textStale)
	case flow.ReplyCompleted:
		msg = tgbotapi.NewMessage(chatID, fmt.Sprintf(textCompleted, reply.FullName))
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	case flow.ReplyCancelled:
		msg = tgbotapi.NewMessage(chatID, textCancelled)
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	default:
		return nil
	}

	return []tgbotapi.Chattable{msg}
}

func TryAgain(chatID int64) tgbotapi.Chattable {
	return tgbotapi.NewMessage(chatID, textTryAgain)
}

func ReferralText(refereeName string) string {
	return fmt.Sprintf(textReferralNew, refereeName, model.ReferralBonus)
}

func choosePrefix(reply flow.Reply) string {
	if reply.Corrective {
		return textChooseOption
	}
	return ""
}

func channelList(channels []model.Channel) string {
	var b strings.Builder
	for _, ch := range channels {
		fmt.Fprintf(&b, "👉 <a href=\"%s\">%s</a>\n", html.EscapeString(ch.Link), html.EscapeString(ch.Name))
	}
	return b.String()
}

func subscribeKeyboard(channels []model.Channel) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(ch.Name, ch.Link)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(textCheckButton, flow.CheckSubscriptionData),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func phoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(textPhoneButton)),
	)
	keyboard.OneTimeKeyboard = true
	return keyboard
}

func regionKeyboard(regions []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(regions); i += regionsPerRow {
		var row []tgbotapi.InlineKeyboardButton
		for _, region := range regions[i:min(i+regionsPerRow, len(regions))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(region, flow.RegionData(region)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func studyStatusKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(model.StudyStatuses))
	for _, status := range model.StudyStatuses {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(studyStatusLabels[status], flow.StudyStatusData(status)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ageRangeKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(model.AgeRanges))
	for _, age := range model.AgeRanges {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(age), flow.AgeRangeData(age)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
