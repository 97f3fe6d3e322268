package database

import (
	"fmt"
	"log"
	"social_chat_backend/internal/config"
	"social_chat_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BotUsername 内置机器人账号，投票消息与结算消息以它的身份发出
const BotUsername = "pollbot"

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.FriendRequest{},
		&model.Friendship{},
		&model.Group{},
		&model.GroupMember{},
		&model.Message{},
		&model.Poll{},
		&model.PollOption{},
		&model.PollResponse{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 内置 bot 账号（投票 webhook 与结算消息的发送者）
	var count int64
	db.Model(&model.User{}).Where("username = ?", BotUsername).Count(&count)
	if count == 0 {
		bot := &model.User{
			Username:    BotUsername,
			DisplayName: "Poll Bot",
			Email:       "pollbot@system.local",
			Password:    "!", // 不可登录
			IsBot:       true,
			Status:      model.StatusOnline,
		}
		db.Create(bot)
	}

	return db, nil
}

// BotUserID 查询内置 bot 账号的 ID
func BotUserID(db *gorm.DB) (uint, error) {
	var bot model.User
	if err := db.Where("username = ?", BotUsername).First(&bot).Error; err != nil {
		return 0, err
	}
	return bot.ID, nil
}
