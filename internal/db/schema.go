package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- PROFILE TABLE (tenant accounts with usage quotas)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS profile SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS email ON profile TYPE string;
    DEFINE FIELD IF NOT EXISTS is_approved ON profile TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS monthly_api_limit ON profile TYPE int DEFAULT 1000;
    DEFINE FIELD IF NOT EXISTS monthly_token_limit ON profile TYPE int DEFAULT 50000;
    DEFINE FIELD IF NOT EXISTS api_requests_used ON profile TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS tokens_used ON profile TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON profile TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON profile TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS profile_email ON profile FIELDS email UNIQUE;

    -- ==========================================================================
    -- ASSISTANT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS assistant SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user ON assistant TYPE record<profile>;
    DEFINE FIELD IF NOT EXISTS business_type ON assistant TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS system_instructions ON assistant TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS preferred_language ON assistant TYPE string DEFAULT "auto"
        ASSERT $value IN ["en", "ms", "auto"];
    DEFINE FIELD IF NOT EXISTS api_key ON assistant TYPE string;
    DEFINE FIELD IF NOT EXISTS is_active ON assistant TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS created_at ON assistant TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON assistant TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS assistant_api_key ON assistant FIELDS api_key UNIQUE;
    DEFINE INDEX IF NOT EXISTS assistant_user ON assistant FIELDS user;

    -- ==========================================================================
    -- KNOWLEDGE ITEM TABLE
    -- ==========================================================================
    -- Vectors live in per-item JSON files on disk; the row only tracks
    -- the artifact path and lifecycle status. The legacy inline format
    -- survives in the embeddings field for old items.
    DEFINE TABLE IF NOT EXISTS knowledge_item SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS assistant ON knowledge_item TYPE record<assistant>;
    DEFINE FIELD IF NOT EXISTS title ON knowledge_item TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON knowledge_item TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS source_file ON knowledge_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS embedding_file_path ON knowledge_item TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS chunks_count ON knowledge_item TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS embedding_model ON knowledge_item TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS status ON knowledge_item TYPE string DEFAULT "uploading"
        ASSERT $value IN ["uploading", "processing", "embedding", "completed", "error"];
    DEFINE FIELD IF NOT EXISTS embeddings ON knowledge_item TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON knowledge_item TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON knowledge_item TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS knowledge_item_assistant ON knowledge_item FIELDS assistant;
    DEFINE INDEX IF NOT EXISTS knowledge_item_status ON knowledge_item FIELDS status;

    -- ==========================================================================
    -- QNA ENTRY TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS qna_entry SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS assistant ON qna_entry TYPE record<assistant>;
    DEFINE FIELD IF NOT EXISTS question ON qna_entry TYPE string;
    DEFINE FIELD IF NOT EXISTS answer ON qna_entry TYPE string;
    DEFINE FIELD IF NOT EXISTS display_order ON qna_entry TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON qna_entry TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS qna_entry_assistant ON qna_entry FIELDS assistant;

    -- ==========================================================================
    -- CHAT SESSION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chat_session SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS assistant ON chat_session TYPE record<assistant>;
    DEFINE FIELD IF NOT EXISTS session_id ON chat_session TYPE string;
    DEFINE FIELD IF NOT EXISTS thread_id ON chat_session TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS source ON chat_session TYPE string DEFAULT "test_chat"
        ASSERT $value IN ["test_chat", "test_voice_realtime", "widget_chat", "widget_voice"];
    DEFINE FIELD IF NOT EXISTS created_at ON chat_session TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON chat_session TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chat_session_lookup ON chat_session FIELDS assistant, session_id UNIQUE;

    -- ==========================================================================
    -- CHAT MESSAGE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chat_message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session ON chat_message TYPE record<chat_session>;
    DEFINE FIELD IF NOT EXISTS role ON chat_message TYPE string
        ASSERT $value IN ["user", "assistant"];
    DEFINE FIELD IF NOT EXISTS content ON chat_message TYPE string;
    DEFINE FIELD IF NOT EXISTS is_voice ON chat_message TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created_at ON chat_message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chat_message_session ON chat_message FIELDS session;

    -- ==========================================================================
    -- USAGE LOG TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS usage_log SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user ON usage_log TYPE record<profile>;
    DEFINE FIELD IF NOT EXISTS kind ON usage_log TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON usage_log TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS prompt_tokens ON usage_log TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS completion_tokens ON usage_log TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS total_tokens ON usage_log TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON usage_log TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS usage_log_user ON usage_log FIELDS user;
`
