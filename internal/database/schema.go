package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(128) NOT NULL PRIMARY KEY,
    credits INT NOT NULL DEFAULT 0,
    attributes JSON NULL,
    created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
    updated_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)
);

CREATE TABLE IF NOT EXISTS images (
    id CHAR(36) NOT NULL PRIMARY KEY,
    user_id VARCHAR(128) NOT NULL,
    prompt TEXT NOT NULL,
    enhanced_prompt TEXT NOT NULL,
    description TEXT NOT NULL,
    original_url VARCHAR(1024) NOT NULL,
    style VARCHAR(32) NOT NULL,
    detail_level INT NOT NULL,
    result_url VARCHAR(2048) NOT NULL,
    created_at TIMESTAMP(3) NOT NULL,
    INDEX idx_images_user_created (user_id, created_at)
);

CREATE TABLE IF NOT EXISTS transactions (
    id CHAR(36) NOT NULL PRIMARY KEY,
    user_id VARCHAR(128) NOT NULL,
    amount INT NOT NULL,
    type VARCHAR(32) NOT NULL,
    order_id VARCHAR(64) NULL,
    payment_id VARCHAR(64) NULL,
    image_id CHAR(36) NULL,
    amount_paid INT NULL,
    created_at TIMESTAMP(3) NOT NULL,
    INDEX idx_transactions_user_created (user_id, created_at)
);
`
